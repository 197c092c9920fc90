package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ipo-tracker/internal/models"
	"ipo-tracker/internal/pricing"
	"ipo-tracker/internal/rules"
	"ipo-tracker/internal/store"
	"ipo-tracker/pkg/utils"
)

// ipoFlags are the descriptive flags shared by add and edit.
type ipoFlags struct {
	name         string
	sector       string
	link         string
	listedOn     string
	issuePrice   string
	listingPrice string
	issueSize    string
	qib          string
	nii          string
	rii          string
	total        string
	portfolio    bool
	shares       float64
	buyPrice     float64
}

func (f *ipoFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "company name")
	fs.StringVar(&f.sector, "sector", "", "sector id or name")
	fs.StringVar(&f.link, "groww", "", "listing page link")
	fs.BoolVar(&f.portfolio, "portfolio", false, "mark as a portfolio holding")
	fs.Float64Var(&f.shares, "shares", 0, "number of shares held")
	fs.Float64Var(&f.buyPrice, "buy-price", 0, "buy price per share")
	fs.StringVar(&f.listedOn, "listed-on", "", "listing date")
	fs.StringVar(&f.issuePrice, "issue-price", "", "issue price or price band")
	fs.StringVar(&f.listingPrice, "listing-price", "", "listing price")
	fs.StringVar(&f.issueSize, "issue-size", "", "issue size")
	fs.StringVar(&f.qib, "qib", "", "QIB subscription")
	fs.StringVar(&f.nii, "nii", "", "NII subscription")
	fs.StringVar(&f.rii, "rii", "", "RII subscription")
	fs.StringVar(&f.total, "total", "", "total subscription")
}

func newIpoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ipo",
		Aliases: []string{"ipos"},
		Short:   "Manage tracked IPOs and holdings",
	}

	cmd.AddCommand(newIpoListCmd(app))
	cmd.AddCommand(newIpoAddCmd(app))
	cmd.AddCommand(newIpoShowCmd(app))
	cmd.AddCommand(newIpoEditCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an IPO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}
			if err := s.DeleteIpo(cmd.Context(), user, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted IPO %s", args[0])
			return nil
		},
	})

	return cmd
}

func newIpoListCmd(app *App) *cobra.Command {
	var (
		portfolioOnly bool
		sector        string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List IPOs, newest first",
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

			records, err := s.ListIpos(cmd.Context(), user, store.IpoFilter{
				PortfolioOnly: portfolioOnly,
				SectorID:      sectorID,
				Limit:         limit,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Dim("No IPOs found.")
				return nil
			}

			table := NewTable(output, "COMPANY", "SECTOR", "ISSUE", "LISTING", "LISTED ON", "HOLDING", "ID")
			for _, rec := range records {
				holding := "-"
				if rec.IsHolding() {
					holding = fmt.Sprintf("%g @ %s", *rec.Shares, utils.FormatIndianCurrency(*rec.BuyPrice))
				}
				table.AddRow(
					TruncateString(rec.CompanyName, 32),
					orDash(rec.SectorName),
					orDash(rec.IssuePrice),
					orDash(rec.ListingPrice),
					orDash(rec.ListedOn),
					holding,
					rec.ID,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&portfolioOnly, "portfolio", false, "only portfolio holdings")
	cmd.Flags().StringVar(&sector, "sector", "", "filter by sector id or name")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of IPOs")
	return cmd
}

func newIpoAddCmd(app *App) *cobra.Command {
	var f ipoFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Track a new IPO",
		Long: `Track a new IPO. With --groww the listing details are scraped from the
page; values passed on the command line take precedence over scraped ones.`,
		Example: `  ipotracker ipo add --name "Acme Ltd" --issue-price "₹141 - ₹148"
  ipotracker ipo add --name "Acme Ltd" --groww https://groww.in/ipo/acme --portfolio --shares 100 --buy-price 148`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}
			sectorID, err := resolveSector(cmd.Context(), s, f.sector)
			if err != nil {
				return err
			}

			in := models.IpoInput{
				CompanyName:  f.name,
				SectorID:     sectorID,
				InPortfolio:  f.portfolio,
				GrowwLink:    f.link,
				ListedOn:     f.listedOn,
				IssuePrice:   f.issuePrice,
				ListingPrice: f.listingPrice,
				IssueSize:    f.issueSize,
				Subscription: models.SubscriptionStats{QIB: f.qib, NII: f.nii, RII: f.rii, Total: f.total},
			}
			if cmd.Flags().Changed("shares") {
				in.Shares = &f.shares
			}
			if cmd.Flags().Changed("buy-price") {
				in.BuyPrice = &f.buyPrice
			}

			if f.link != "" {
				scrapeListing(cmd.Context(), app, output, &in)
			}

			rec, err := s.CreateIpo(cmd.Context(), user, in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rec)
			}
			output.Success("✓ Added %s (%s)", rec.CompanyName, rec.ID)
			return nil
		},
	}

	f.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// scrapeListing fills empty fields of in from the listing page. Failures
// are reported and the IPO is still added with what the user supplied.
func scrapeListing(ctx context.Context, app *App, output *Output, in *models.IpoInput) {
	meta, err := app.quotes().FetchIpoMetadata(ctx, in.GrowwLink)
	switch {
	case err != nil:
		app.Logger.Warn().Err(err).Msg("Listing scrape failed")
		if !output.IsJSON() {
			output.Warning("⚠ Could not fetch listing details: %v", err)
		}
		return
	case !meta.Success:
		if !output.IsJSON() {
			output.Warning("⚠ Listing page returned no details: %s", orDash(meta.Error))
		}
		return
	}
	if meta.Warning != "" && !output.IsJSON() {
		output.Warning("⚠ %s", meta.Warning)
	}
	meta.ApplyTo(in)
}

func newIpoEditCmd(app *App) *cobra.Command {
	var f ipoFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update fields of an IPO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}

			var patch models.IpoPatch
			changed := cmd.Flags().Changed
			str := func(flag string, v *string) *string {
				if changed(flag) {
					return v
				}
				return nil
			}
			patch.CompanyName = str("name", &f.name)
			patch.GrowwLink = str("groww", &f.link)
			patch.ListedOn = str("listed-on", &f.listedOn)
			patch.IssuePrice = str("issue-price", &f.issuePrice)
			patch.ListingPrice = str("listing-price", &f.listingPrice)
			patch.IssueSize = str("issue-size", &f.issueSize)
			if changed("sector") {
				id, err := resolveSector(cmd.Context(), s, f.sector)
				if err != nil {
					return err
				}
				patch.SectorID = &id
			}
			if changed("portfolio") {
				patch.InPortfolio = &f.portfolio
			}
			if changed("shares") {
				patch.Shares = &f.shares
			}
			if changed("buy-price") {
				patch.BuyPrice = &f.buyPrice
			}
			if changed("qib") || changed("nii") || changed("rii") || changed("total") {
				current, err := s.GetIpo(cmd.Context(), user, args[0])
				if err != nil {
					return err
				}
				sub := current.Subscription
				for flag, dst := range map[string]*string{"qib": &sub.QIB, "nii": &sub.NII, "rii": &sub.RII, "total": &sub.Total} {
					if changed(flag) {
						*dst, _ = cmd.Flags().GetString(flag)
					}
				}
				patch.Subscription = &sub
			}

			rec, err := s.UpdateIpo(cmd.Context(), user, args[0], patch)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rec)
			}
			output.Success("✓ Updated %s", rec.CompanyName)
			return nil
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func newIpoShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one company with its live price and alert thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}
			rec, err := s.GetIpo(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}
			ruleSet, err := s.ListAlertRules(cmd.Context(), user)
			if err != nil {
				return err
			}
			thresholds := rules.Resolve(rec.Ref(), ruleSet)

			// Ctrl-C abandons the price lookup and shows what is known.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			resolver := pricing.NewResolver(app.quotes())
			go func() {
				<-ctx.Done()
				resolver.Cancel()
			}()
			if _, err := resolver.Show(ctx, pricing.BaseView(ctx, *rec, app.quotes())); err != nil {
				app.Logger.Debug().Err(err).Str("company", rec.CompanyName).Msg("Price lookup failed")
			}
			view := resolver.View()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"company":    view,
					"thresholds": thresholds,
				})
			}
			printCompany(output, view, thresholds)
			return nil
		},
	}
}

func printCompany(output *Output, view models.CompanyView, th models.Thresholds) {
	lines := []string{
		fmt.Sprintf("Sector:        %s", orDash(view.SectorName)),
		fmt.Sprintf("Listed On:     %s", orDash(view.ListedOn)),
		fmt.Sprintf("Issue Price:   %s", orDash(view.IssuePrice)),
		fmt.Sprintf("Listing Price: %s", orDash(view.ListingPrice)),
		fmt.Sprintf("Issue Size:    %s", orDash(view.IssueSize)),
		fmt.Sprintf("Subscription:  QIB %s  NII %s  RII %s  Total %s",
			orDash(view.Subscription.QIB), orDash(view.Subscription.NII),
			orDash(view.Subscription.RII), orDash(view.Subscription.Total)),
		"",
		fmt.Sprintf("CMP:           %s", utils.FormatOptionalCurrency(view.CMP)),
		fmt.Sprintf("Change:        %s", output.FormatPercent(view.PctChange)),
	}
	if view.InPortfolio {
		lines = append(lines,
			fmt.Sprintf("Shares:        %s", formatShares(view.Shares)),
			fmt.Sprintf("Buy Price:     %s", utils.FormatOptionalCurrency(view.BuyPrice)),
			fmt.Sprintf("Invested:      %s", utils.FormatOptionalCurrency(view.Invested)),
			fmt.Sprintf("Current Value: %s", utils.FormatOptionalCurrency(view.CurrentValue)),
		)
	}
	lines = append(lines, "",
		fmt.Sprintf("Alerts:        gain %s / loss %s (%s)",
			utils.FormatPercent(th.GainPct), utils.FormatPercent(th.LossPct), th.Source))

	output.Box(view.CompanyName, lines)
	if view.PriceError != "" {
		output.Warning("⚠ %s", view.PriceError)
	}
}

func formatShares(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *v)
}
