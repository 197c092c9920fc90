package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ipo-tracker/internal/alerts"
	"ipo-tracker/pkg/utils"
)

// alertRunTimeout bounds one scheduled check.
const alertRunTimeout = 10 * time.Minute

// newChecker builds the alert check for the current configuration. With
// allUsers false only the configured user is checked.
func newChecker(app *App, allUsers bool) (*alerts.Checker, error) {
	s, err := app.store()
	if err != nil {
		return nil, err
	}
	c := &alerts.Checker{
		Store:         s,
		Quotes:        app.quotes(),
		Logger:        app.Logger,
		PortfolioOnly: app.Config.Alerts.PortfolioOnly,
		Concurrency:   app.Config.Quote.Concurrency,
	}
	if !allUsers {
		user, err := app.user()
		if err != nil {
			return nil, err
		}
		c.Users = []string{user}
	}
	return c, nil
}

func newAlertsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Check gain/loss alerts",
	}

	var allUsers, includeAll bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Run one alert check now",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			checker, err := newChecker(app, allUsers)
			if err != nil {
				return err
			}
			if includeAll {
				checker.PortfolioOnly = false
			}

			report, err := checker.Run(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(report)
			}
			printReport(output, report)
			return nil
		},
	}
	check.Flags().BoolVar(&allUsers, "all-users", false, "check every user's IPOs")
	check.Flags().BoolVar(&includeAll, "all", false, "include IPOs outside the portfolio")
	cmd.AddCommand(check)

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Run alert checks on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			checker, err := newChecker(app, app.Config.Alerts.AllUsers)
			if err != nil {
				return err
			}

			scheduler := alerts.NewScheduler(app.Logger, alertRunTimeout)
			if err := scheduler.AddJob(app.Config.Alerts.Schedule, checker); err != nil {
				return fmt.Errorf("failed to schedule alert check: %w", err)
			}
			scheduler.Start()
			defer scheduler.Stop()

			output.Info("Watching alerts on %q, next check %s",
				app.Config.Alerts.Schedule, scheduler.Next().In(utils.IndiaLocation).Format("02 Jan 15:04:05 MST"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	})

	return cmd
}

func printReport(output *Output, report *alerts.Report) {
	output.Bold("Alert check: %d companies, %d priced, %d alerts",
		report.Companies, report.QuotesFetched, len(report.Alerts))

	for _, a := range report.Alerts {
		label := output.ColoredString(ColorGreen, "▲ GAIN")
		switch a.Direction {
		case alerts.DirectionLoss:
			label = output.ColoredString(ColorRed, "▼ LOSS")
		case alerts.DirectionMixed:
			label = output.ColoredString(ColorYellow, "◆ MIXED")
		}
		output.Println()
		output.Printf("%s  %s @ %s", label, a.CompanyName, utils.FormatIndianCurrency(a.CMP))
		if a.SectorName != "" {
			output.Printf("  [%s]", a.SectorName)
		}
		output.Println()
		for _, reason := range a.ReasonTexts() {
			output.Printf("    %s\n", reason)
		}
	}

	if len(report.Skipped) > 0 {
		output.Println()
		output.Dim("No CMP for: %v", report.Skipped)
	}
	for _, issue := range report.Integrity {
		output.Warning("⚠ %s", issue)
	}
}
