package models

// HoldingValuation is the derived value of one portfolio holding.
// CMP, CurrentValue and PctChange are nil when no live quote is available.
type HoldingValuation struct {
	IpoID        string   `json:"id"`
	CompanyName  string   `json:"company_name"`
	SectorID     string   `json:"sector_id,omitempty"`
	SectorName   string   `json:"sector,omitempty"`
	Shares       float64  `json:"shares"`
	BuyPrice     float64  `json:"buy_price"`
	Invested     float64  `json:"invested"`
	CMP          *float64 `json:"cmp"`
	CurrentValue *float64 `json:"current_value"`
	PctChange    *float64 `json:"pct_change"`
	IssuePrice   string   `json:"issue_price,omitempty"`
	ListingPrice string   `json:"listing_price,omitempty"`
	ListedOn     string   `json:"listed_on,omitempty"`
}

// PortfolioSummary aggregates all holdings of one user.
type PortfolioSummary struct {
	Holdings          []HoldingValuation `json:"companies"`
	TotalInvested     float64            `json:"total_invested"`
	TotalCurrentValue float64            `json:"total_current_value"`
	TotalPctChange    float64            `json:"total_pct_change"`
}

// CompanyView is the single view model for one company, merged from its IPO
// record and, when held, its holding valuation.
type CompanyView struct {
	ID           string            `json:"id"`
	CompanyName  string            `json:"company_name"`
	SectorID     string            `json:"sector_id,omitempty"`
	SectorName   string            `json:"sector_name,omitempty"`
	GrowwLink    string            `json:"groww_link,omitempty"`
	ListedOn     string            `json:"listed_on,omitempty"`
	IssuePrice   string            `json:"issue_price,omitempty"`
	ListingPrice string            `json:"listing_price,omitempty"`
	IssueSize    string            `json:"issue_size,omitempty"`
	Subscription SubscriptionStats `json:"subscription"`
	InPortfolio  bool              `json:"portfolio"`
	Shares       *float64          `json:"shares"`
	BuyPrice     *float64          `json:"buy_price"`
	Invested     *float64          `json:"invested"`
	CMP          *float64          `json:"cmp"`
	CurrentValue *float64          `json:"current_value"`
	PctChange    *float64          `json:"pct_change"`
	PriceError   string            `json:"price_error,omitempty"`
}
