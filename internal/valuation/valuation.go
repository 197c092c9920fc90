// Package valuation derives holding values and portfolio totals from IPO
// records and a snapshot of live quotes. Nothing here performs I/O.
package valuation

import "ipo-tracker/internal/models"

// ValueHolding values one holding against an optional quote. The record must
// satisfy IsHolding. Without a usable quote CMP, CurrentValue and PctChange
// stay nil.
func ValueHolding(rec models.IpoRecord, quote *models.PriceQuote) models.HoldingValuation {
	shares, buy := *rec.Shares, *rec.BuyPrice
	hv := models.HoldingValuation{
		IpoID:        rec.ID,
		CompanyName:  rec.CompanyName,
		SectorID:     rec.SectorID,
		SectorName:   rec.SectorName,
		Shares:       shares,
		BuyPrice:     buy,
		Invested:     shares * buy,
		IssuePrice:   rec.IssuePrice,
		ListingPrice: rec.ListingPrice,
		ListedOn:     rec.ListedOn,
	}

	if quote == nil {
		return hv
	}
	cmp, ok := quote.LivePrice()
	if !ok {
		return hv
	}

	current := shares * cmp
	hv.CMP = &cmp
	hv.CurrentValue = &current
	if buy > 0 {
		pct := (cmp - buy) * 100 / buy
		hv.PctChange = &pct
	}
	return hv
}

// Aggregate values every holding in records and sums the portfolio totals.
// quotes is keyed by IPO id. Records that are not holdings are skipped.
//
// A holding without a quote still counts toward TotalInvested but adds 0 to
// TotalCurrentValue, so missing quotes understate the portfolio rather than
// hide losses. TotalPctChange is 0 when nothing is invested.
func Aggregate(records []models.IpoRecord, quotes map[string]models.PriceQuote) models.PortfolioSummary {
	summary := models.PortfolioSummary{
		Holdings: make([]models.HoldingValuation, 0, len(records)),
	}

	for _, rec := range records {
		if !rec.IsHolding() {
			continue
		}

		var quote *models.PriceQuote
		if q, ok := quotes[rec.ID]; ok {
			quote = &q
		}

		hv := ValueHolding(rec, quote)
		summary.Holdings = append(summary.Holdings, hv)
		summary.TotalInvested += hv.Invested
		if hv.CurrentValue != nil {
			summary.TotalCurrentValue += *hv.CurrentValue
		}
	}

	if summary.TotalInvested > 0 {
		summary.TotalPctChange = (summary.TotalCurrentValue - summary.TotalInvested) * 100 / summary.TotalInvested
	}
	return summary
}

// Holdings filters records down to valuable holdings.
func Holdings(records []models.IpoRecord) []models.IpoRecord {
	out := make([]models.IpoRecord, 0, len(records))
	for _, rec := range records {
		if rec.IsHolding() {
			out = append(out, rec)
		}
	}
	return out
}
