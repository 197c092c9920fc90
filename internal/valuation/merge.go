package valuation

import "ipo-tracker/internal/models"

// Merge builds the single view of a company from its IPO record and its
// holding valuation, either of which may be nil.
//
// Policy: the holding wins for financial metrics (shares, buy price,
// invested, cmp, current value, pct change); the IPO record wins for
// descriptive metadata (sector, dates, issue and listing prices,
// subscription, link). Fields only one side carries are taken from it.
func Merge(ipo *models.IpoRecord, holding *models.HoldingValuation) models.CompanyView {
	var view models.CompanyView

	if holding != nil {
		view.ID = holding.IpoID
		view.CompanyName = holding.CompanyName
		view.SectorID = holding.SectorID
		view.SectorName = holding.SectorName
		view.IssuePrice = holding.IssuePrice
		view.ListingPrice = holding.ListingPrice
		view.ListedOn = holding.ListedOn
		mergeFinancials(&view, holding)
	}

	if ipo != nil {
		mergeDescriptive(&view, ipo)
		if holding == nil {
			view.InPortfolio = ipo.InPortfolio
			view.Shares = copyFloat(ipo.Shares)
			view.BuyPrice = copyFloat(ipo.BuyPrice)
			if ipo.Shares != nil && ipo.BuyPrice != nil {
				invested := *ipo.Shares * *ipo.BuyPrice
				view.Invested = &invested
			}
		}
	}

	return view
}

func mergeFinancials(view *models.CompanyView, h *models.HoldingValuation) {
	shares, buy, invested := h.Shares, h.BuyPrice, h.Invested
	view.InPortfolio = true
	view.Shares = &shares
	view.BuyPrice = &buy
	view.Invested = &invested
	view.CMP = copyFloat(h.CMP)
	view.CurrentValue = copyFloat(h.CurrentValue)
	view.PctChange = copyFloat(h.PctChange)
}

func mergeDescriptive(view *models.CompanyView, ipo *models.IpoRecord) {
	view.ID = ipo.ID
	view.CompanyName = ipo.CompanyName
	view.SectorID = ipo.SectorID
	view.SectorName = ipo.SectorName
	view.GrowwLink = ipo.GrowwLink
	view.ListedOn = ipo.ListedOn
	view.IssuePrice = ipo.IssuePrice
	view.ListingPrice = ipo.ListingPrice
	view.IssueSize = ipo.IssueSize
	view.Subscription = ipo.Subscription
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
