package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ipo-tracker/internal/classify"
	"ipo-tracker/internal/models"
	"ipo-tracker/internal/pricing"
	"ipo-tracker/internal/store"
	"ipo-tracker/internal/valuation"
	"ipo-tracker/pkg/utils"
)

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Value portfolio holdings at live prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, s, err := app.session()
			if err != nil {
				return err
			}
			summary, err := loadPortfolio(cmd, app, s, user)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}
			printPortfolio(output, summary)
			return nil
		},
	}
}

func loadPortfolio(cmd *cobra.Command, app *App, s store.RecordStore, user string) (models.PortfolioSummary, error) {
	records, err := s.ListIpos(cmd.Context(), user, store.IpoFilter{PortfolioOnly: true})
	if err != nil {
		return models.PortfolioSummary{}, err
	}
	quotes, err := pricing.FetchQuotes(cmd.Context(), app.quotes(), records, app.Config.Quote.Concurrency)
	if err != nil {
		return models.PortfolioSummary{}, err
	}
	return valuation.Aggregate(records, quotes), nil
}

func printPortfolio(output *Output, summary models.PortfolioSummary) {
	if len(summary.Holdings) == 0 {
		output.Dim("No holdings. Mark an IPO with 'ipotracker ipo edit <id> --portfolio --shares N --buy-price P'.")
		return
	}

	table := NewTable(output, "COMPANY", "SHARES", "BUY", "INVESTED", "CMP", "VALUE", "CHANGE")
	for _, h := range summary.Holdings {
		table.AddRow(
			TruncateString(h.CompanyName, 32),
			fmt.Sprintf("%g", h.Shares),
			utils.FormatIndianCurrency(h.BuyPrice),
			utils.FormatIndianCurrency(h.Invested),
			utils.FormatOptionalCurrency(h.CMP),
			utils.FormatOptionalCurrency(h.CurrentValue),
			output.FormatPercent(h.PctChange),
		)
	}
	table.Render()
	output.Println()

	pct := utils.Round2(summary.TotalPctChange)
	output.Printf("Invested:      %s\n", utils.FormatCompact(utils.Round2(summary.TotalInvested)))
	output.Printf("Current Value: %s\n", utils.FormatCompact(utils.Round2(summary.TotalCurrentValue)))
	output.Printf("P&L:           %s (%s)\n",
		output.FormatPnL(utils.Round2(summary.TotalCurrentValue-summary.TotalInvested)), output.FormatPercent(&pct))
}

func newClassifyCmd(app *App) *cobra.Command {
	var (
		portfolioOnly bool
		sector        string
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Split companies into profited and losted",
		Long: `Rank companies by their move against a reference price. IPOs are measured
against the issue price, holdings (--portfolio) against the buy price. The
live price is used when available, otherwise the listing price.`,
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

			var items []classify.Item
			if portfolioOnly {
				summary, err := loadPortfolio(cmd, app, s, user)
				if err != nil {
					return err
				}
				items = classify.FromHoldings(summary.Holdings)
			} else {
				records, err := s.ListIpos(cmd.Context(), user, store.IpoFilter{})
				if err != nil {
					return err
				}
				quotes, err := pricing.FetchQuotes(cmd.Context(), app.quotes(), records, app.Config.Quote.Concurrency)
				if err != nil {
					return err
				}
				items = classify.FromIpos(records, pricing.PricesByName(quotes))
			}

			result := classify.Classify(classify.FilterSector(items, sectorID))
			if output.IsJSON() {
				return output.JSON(result)
			}
			printRanked(output, "PROFITED", result.Profited)
			output.Println()
			printRanked(output, "LOSTED", result.Losted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&portfolioOnly, "portfolio", false, "only portfolio holdings")
	cmd.Flags().StringVar(&sector, "sector", "", "filter by sector id or name")
	return cmd
}

func printRanked(output *Output, title string, ranked []classify.Ranked) {
	output.Bold("%s (%d)", title, len(ranked))
	if len(ranked) == 0 {
		output.Dim("  None found")
		return
	}
	table := NewTable(output, "COMPANY", "REFERENCE", "PRICE", "DIFF", "CHANGE", "BASIS")
	for _, r := range ranked {
		pct := r.Pct
		table.AddRow(
			TruncateString(r.CompanyName, 32),
			utils.FormatOptionalCurrency(r.ReferencePrice),
			utils.FormatIndianCurrency(r.CurrentPrice),
			output.FormatPnL(utils.Round2(r.Diff)),
			output.FormatPercent(&pct),
			string(r.Basis),
		)
	}
	table.Render()
}
