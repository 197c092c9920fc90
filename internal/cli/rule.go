package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ipo-tracker/internal/logging"
	"ipo-tracker/internal/models"
	"ipo-tracker/internal/rules"
	"ipo-tracker/pkg/utils"
)

func newRuleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rule",
		Aliases: []string{"rules"},
		Short:   "Manage gain/loss alert rules",
		Long: `Alert rules set gain and loss thresholds in percent. A company rule
overrides a sector rule, which overrides the base rule; without any rule the
defaults are +15% / -15%.`,
	}

	cmd.AddCommand(newRuleListCmd(app))
	cmd.AddCommand(newRuleSetCmd(app))
	cmd.AddCommand(newRuleResolveCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}
			if err := s.DeleteAlertRule(cmd.Context(), user, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted rule %s", args[0])
			return nil
		},
	})

	return cmd
}

func newRuleListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}
			ruleSet, err := s.ListAlertRules(cmd.Context(), user)
			if err != nil {
				return err
			}

			issues := rules.NewIndex(ruleSet).Issues()
			logging.LogIntegrity(app.Logger, issues)

			if output.IsJSON() {
				return output.JSON(ruleSet)
			}
			if len(ruleSet) == 0 {
				output.Dim("No alert rules. Defaults apply: gain %s / loss %s.",
					utils.FormatPercent(rules.DefaultGainPct), utils.FormatPercent(rules.DefaultLossPct))
				return nil
			}

			table := NewTable(output, "TYPE", "TARGET", "GAIN", "LOSS", "ID")
			for _, r := range ruleSet {
				table.AddRow(string(r.Kind), ruleTarget(r), utils.FormatPercent(r.GainPct), utils.FormatPercent(r.LossPct), r.ID)
			}
			table.Render()
			for _, issue := range issues {
				output.Warning("⚠ %v", issue)
			}
			return nil
		},
	}
}

func ruleTarget(r models.AlertRule) string {
	switch r.Kind {
	case models.RuleSector:
		if r.SectorName != "" {
			return r.SectorName
		}
		return r.SectorID
	case models.RuleCompany:
		return r.CompanyName
	default:
		return "all"
	}
}

func newRuleSetCmd(app *App) *cobra.Command {
	var (
		sector  string
		company string
		gain    float64
		loss    float64
	)

	cmd := &cobra.Command{
		Use:   "set <base|sector|company>",
		Short: "Create or update an alert rule",
		Long: `Create an alert rule, or update the existing one with the same scope:
there is one base rule, one rule per sector and one per company name.
Company names match exactly, including case.`,
		Example: `  ipotracker rule set base --gain 20 --loss -10
  ipotracker rule set sector --sector Technology --gain 25 --loss -15
  ipotracker rule set company --company "Acme Ltd" --gain 40 --loss -5`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"base", "sector", "company"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}

			in := models.RuleInput{
				Kind:        models.RuleKind(args[0]),
				CompanyName: company,
				GainPct:     gain,
				LossPct:     loss,
			}
			if sector != "" {
				if in.SectorID, err = resolveSector(cmd.Context(), s, sector); err != nil {
					return err
				}
			}

			rule, err := s.UpsertAlertRule(cmd.Context(), user, in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rule)
			}
			output.Success("✓ %s rule for %s: gain %s / loss %s", rule.Kind, ruleTarget(*rule),
				utils.FormatPercent(rule.GainPct), utils.FormatPercent(rule.LossPct))
			return nil
		},
	}

	cmd.Flags().StringVar(&sector, "sector", "", "sector id or name (sector rules)")
	cmd.Flags().StringVar(&company, "company", "", "exact company name (company rules)")
	cmd.Flags().Float64Var(&gain, "gain", rules.DefaultGainPct, "gain threshold in percent")
	cmd.Flags().Float64Var(&loss, "loss", rules.DefaultLossPct, "loss threshold in percent")
	return cmd
}

func newRuleResolveCmd(app *App) *cobra.Command {
	var sector string

	cmd := &cobra.Command{
		Use:   "resolve <company>",
		Short: "Show the thresholds that apply to a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}
			sectorID, err := resolveSector(cmd.Context(), s, sector)
			if err != nil {
				return err
			}
			ruleSet, err := s.ListAlertRules(cmd.Context(), user)
			if err != nil {
				return err
			}

			th := rules.Resolve(models.CompanyRef{Name: args[0], SectorID: sectorID}, ruleSet)
			if output.IsJSON() {
				return output.JSON(th)
			}
			source := string(th.Source)
			if th.RuleID != "" {
				source = fmt.Sprintf("%s rule %s", th.Source, th.RuleID)
			}
			output.Printf("%s: gain %s / loss %s (%s)\n", args[0],
				utils.FormatPercent(th.GainPct), utils.FormatPercent(th.LossPct), source)
			return nil
		},
	}

	cmd.Flags().StringVar(&sector, "sector", "", "sector id or name of the company")
	return cmd
}
