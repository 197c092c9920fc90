// Package alerts evaluates tracked IPOs against their effective gain/loss
// thresholds and runs that evaluation on a schedule.
package alerts

import (
	"fmt"

	"ipo-tracker/internal/models"
	"ipo-tracker/internal/rules"
	"ipo-tracker/pkg/utils"
)

// Direction of a triggered alert.
type Direction string

const (
	DirectionGain  Direction = "gain"
	DirectionLoss  Direction = "loss"
	DirectionMixed Direction = "mixed"
)

// Basis is the reference price a percentage was measured against.
type Basis string

const (
	BasisIssue   Basis = "issue"
	BasisListing Basis = "listing"
)

// Reason is one threshold crossing.
type Reason struct {
	Basis     Basis     `json:"basis"`
	Reference float64   `json:"reference"`
	Pct       float64   `json:"pct"`
	Threshold float64   `json:"threshold"`
	Direction Direction `json:"direction"`
}

func (r Reason) String() string {
	if r.Direction == DirectionGain {
		return fmt.Sprintf("%s vs %s price (%s), above gain threshold of %s",
			utils.FormatPercent(r.Pct), r.Basis, utils.FormatIndianCurrency(r.Reference), utils.FormatPercent(r.Threshold))
	}
	return fmt.Sprintf("%s vs %s price (%s), below loss threshold of %s",
		utils.FormatPercent(r.Pct), r.Basis, utils.FormatIndianCurrency(r.Reference), utils.FormatPercent(r.Threshold))
}

// Alert is a company whose current price crossed a threshold.
type Alert struct {
	IpoID        string            `json:"ipo_id"`
	UserID       string            `json:"user_id"`
	CompanyName  string            `json:"company_name"`
	SectorName   string            `json:"sector,omitempty"`
	CMP          float64           `json:"cmp"`
	IssuePrice   *float64          `json:"issue_price"`
	ListingPrice *float64          `json:"listing_price"`
	PctVsIssue   *float64          `json:"pct_vs_issue"`
	PctVsListing *float64          `json:"pct_vs_listing"`
	Thresholds   models.Thresholds `json:"thresholds"`
	Reasons      []Reason          `json:"reasons"`
	Direction    Direction         `json:"direction"`
}

// ReasonTexts renders the reasons for display.
func (a Alert) ReasonTexts() []string {
	out := make([]string, len(a.Reasons))
	for i, r := range a.Reasons {
		out[i] = r.String()
	}
	return out
}

// pctChange is the rounded move from ref to cmp, or nil without a reference.
func pctChange(cmp float64, ref *float64) *float64 {
	if ref == nil || *ref <= 0 {
		return nil
	}
	pct := utils.Round2((cmp - *ref) * 100 / *ref)
	return &pct
}

func crossing(basis Basis, ref, pct *float64, th models.Thresholds) (Reason, bool) {
	if pct == nil {
		return Reason{}, false
	}
	r := Reason{Basis: basis, Reference: *ref, Pct: *pct}
	switch {
	case *pct >= th.GainPct:
		r.Threshold, r.Direction = th.GainPct, DirectionGain
	case *pct <= th.LossPct:
		r.Threshold, r.Direction = th.LossPct, DirectionLoss
	default:
		return Reason{}, false
	}
	return r, true
}

// EvaluateOne checks a single IPO at price cmp. Both the issue price and the
// listing price are used as references, each compared independently against
// the same thresholds; either crossing triggers the alert.
func EvaluateOne(rec models.IpoRecord, cmp float64, th models.Thresholds) (Alert, bool) {
	issue := parsePrice(rec.IssuePrice)
	listing := parsePrice(rec.ListingPrice)

	a := Alert{
		IpoID:        rec.ID,
		UserID:       rec.UserID,
		CompanyName:  rec.CompanyName,
		SectorName:   rec.SectorName,
		CMP:          cmp,
		IssuePrice:   issue,
		ListingPrice: listing,
		PctVsIssue:   pctChange(cmp, issue),
		PctVsListing: pctChange(cmp, listing),
		Thresholds:   th,
	}

	if r, ok := crossing(BasisIssue, issue, a.PctVsIssue, th); ok {
		a.Reasons = append(a.Reasons, r)
	}
	if r, ok := crossing(BasisListing, listing, a.PctVsListing, th); ok {
		a.Reasons = append(a.Reasons, r)
	}
	if len(a.Reasons) == 0 {
		return Alert{}, false
	}

	a.Direction = a.Reasons[0].Direction
	for _, r := range a.Reasons[1:] {
		if r.Direction != a.Direction {
			a.Direction = DirectionMixed
		}
	}
	return a, true
}

func parsePrice(raw string) *float64 {
	v, ok := utils.ParsePositivePrice(raw)
	if !ok {
		return nil
	}
	return &v
}

// Evaluate checks every record that has a price in prices (keyed by company
// name) against thresholds resolved from idx. Records without a price are
// returned in skipped.
func Evaluate(records []models.IpoRecord, idx *rules.Index, prices map[string]float64) (triggered []Alert, skipped []string) {
	for _, rec := range records {
		cmp, ok := prices[rec.CompanyName]
		if !ok {
			skipped = append(skipped, rec.CompanyName)
			continue
		}
		if a, ok := EvaluateOne(rec, cmp, idx.Resolve(rec.Ref())); ok {
			triggered = append(triggered, a)
		}
	}
	return triggered, skipped
}
