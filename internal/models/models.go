// Package models provides domain models for the IPO tracker.
package models

import (
	"math"
	"strings"
	"time"
)

// Sector groups IPOs for sector-level alert rules. Sectors are shared by all users.
type Sector struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionStats holds the subscription multiples reported for an issue,
// kept as scraped text (e.g. "12.5x").
type SubscriptionStats struct {
	QIB   string `json:"qib_subscription,omitempty"`
	NII   string `json:"nii_subscription,omitempty"`
	RII   string `json:"rii_subscription,omitempty"`
	Total string `json:"total_subscription,omitempty"`
}

// IpoRecord is a tracked company. Shares and BuyPrice are set iff InPortfolio.
// Price fields carry the scraped text and may include currency symbols or a
// price band; use utils.ParsePrice to read them.
type IpoRecord struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	CompanyName  string            `json:"company_name"`
	SectorID     string            `json:"sector_id,omitempty"`
	SectorName   string            `json:"sector_name,omitempty"`
	InPortfolio  bool              `json:"portfolio"`
	Shares       *float64          `json:"no_of_shares,omitempty"`
	BuyPrice     *float64          `json:"buy_price,omitempty"`
	GrowwLink    string            `json:"groww_link,omitempty"`
	ListedOn     string            `json:"listed_on,omitempty"`
	IssuePrice   string            `json:"issue_price,omitempty"`
	ListingPrice string            `json:"listing_price,omitempty"`
	IssueSize    string            `json:"issue_size,omitempty"`
	Subscription SubscriptionStats `json:"subscription"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty"`
}

// IsHolding reports whether the record can be valued as a portfolio holding.
func (r *IpoRecord) IsHolding() bool {
	return r.InPortfolio && r.Shares != nil && r.BuyPrice != nil
}

// PriceQuote is the result of a live price lookup. It is never persisted.
type PriceQuote struct {
	CompanyName string   `json:"company_name"`
	Price       *float64 `json:"price"`
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
}

// LivePrice returns the quoted price when the quote carries a usable one.
// Zero, negative and non-finite prices are treated as no quote.
func (q PriceQuote) LivePrice() (float64, bool) {
	if q.Price == nil {
		return 0, false
	}
	p := *q.Price
	if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// FailedQuote builds an unsuccessful quote carrying the error text.
func FailedQuote(company string, err error) PriceQuote {
	q := PriceQuote{CompanyName: company}
	if err != nil {
		q.Error = err.Error()
	}
	return q
}

// IpoMetadata is what the scraping service extracts from an IPO listing page.
type IpoMetadata struct {
	ListedOn     string            `json:"listed_on,omitempty"`
	IssuePrice   string            `json:"issue_price,omitempty"`
	ListingPrice string            `json:"listing_price,omitempty"`
	IssueSize    string            `json:"issue_size,omitempty"`
	Subscription SubscriptionStats `json:"subscription"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	Warning      string            `json:"warning,omitempty"`
}

// ApplyTo fills empty descriptive fields of in from the scraped metadata.
// Values already supplied by the user are kept.
func (m IpoMetadata) ApplyTo(in *IpoInput) {
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&in.ListedOn, m.ListedOn)
	fill(&in.IssuePrice, m.IssuePrice)
	fill(&in.ListingPrice, m.ListingPrice)
	fill(&in.IssueSize, m.IssueSize)
	fill(&in.Subscription.QIB, m.Subscription.QIB)
	fill(&in.Subscription.NII, m.Subscription.NII)
	fill(&in.Subscription.RII, m.Subscription.RII)
	fill(&in.Subscription.Total, m.Subscription.Total)
}
