// Package classify splits companies into those trading above and below their
// reference price.
package classify

import (
	"sort"

	"ipo-tracker/internal/models"
	"ipo-tracker/pkg/utils"
)

// Basis names the price a company was classified on.
type Basis string

const (
	BasisLive    Basis = "live"
	BasisListing Basis = "listing"
)

// Item is one company prepared for classification. Build items with FromIpo
// or FromHolding, which pick the reference price for their shape.
type Item struct {
	ID             string   `json:"id"`
	CompanyName    string   `json:"company_name"`
	SectorID       string   `json:"sector_id,omitempty"`
	SectorName     string   `json:"sector_name,omitempty"`
	ReferencePrice *float64 `json:"reference_price"`
	LivePrice      *float64 `json:"live_price"`
	ListingPrice   *float64 `json:"listing_price"`
}

// Ranked is a classified item with its movement against the reference.
type Ranked struct {
	Item
	CurrentPrice float64 `json:"current_price"`
	Diff         float64 `json:"diff"`
	Pct          float64 `json:"pct"`
	Basis        Basis   `json:"basis"`
}

// Result holds both buckets, most extreme movers first.
type Result struct {
	Profited []Ranked `json:"profited"`
	Losted   []Ranked `json:"losted"`
}

// FromIpo builds an IPO-shaped item: the reference is the issue price. live
// is the current quote, if any.
func FromIpo(rec models.IpoRecord, live *float64) Item {
	return Item{
		ID:             rec.ID,
		CompanyName:    rec.CompanyName,
		SectorID:       rec.SectorID,
		SectorName:     rec.SectorName,
		ReferencePrice: parsed(rec.IssuePrice),
		LivePrice:      live,
		ListingPrice:   parsed(rec.ListingPrice),
	}
}

// FromHolding builds a holding-shaped item: the reference is the buy price
// and the live price is the holding's CMP.
func FromHolding(hv models.HoldingValuation) Item {
	buy := hv.BuyPrice
	return Item{
		ID:             hv.IpoID,
		CompanyName:    hv.CompanyName,
		SectorID:       hv.SectorID,
		SectorName:     hv.SectorName,
		ReferencePrice: &buy,
		LivePrice:      hv.CMP,
		ListingPrice:   parsed(hv.ListingPrice),
	}
}

// FromIpos builds IPO-shaped items, looking up live prices by company name.
func FromIpos(records []models.IpoRecord, livePrices map[string]float64) []Item {
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		var live *float64
		if p, ok := livePrices[rec.CompanyName]; ok {
			live = &p
		}
		items = append(items, FromIpo(rec, live))
	}
	return items
}

// FromHoldings builds holding-shaped items.
func FromHoldings(holdings []models.HoldingValuation) []Item {
	items := make([]Item, 0, len(holdings))
	for _, hv := range holdings {
		items = append(items, FromHolding(hv))
	}
	return items
}

func parsed(raw string) *float64 {
	v, ok := utils.ParsePositivePrice(raw)
	if !ok {
		return nil
	}
	return &v
}

// Rank computes an item's movement. The current price is the live price,
// else the listing price. It returns false when either price is missing or
// the reference is not positive.
func Rank(item Item) (Ranked, bool) {
	if item.ReferencePrice == nil || *item.ReferencePrice <= 0 {
		return Ranked{}, false
	}

	var current float64
	var basis Basis
	switch {
	case item.LivePrice != nil && *item.LivePrice > 0:
		current, basis = *item.LivePrice, BasisLive
	case item.ListingPrice != nil && *item.ListingPrice > 0:
		current, basis = *item.ListingPrice, BasisListing
	default:
		return Ranked{}, false
	}

	ref := *item.ReferencePrice
	return Ranked{
		Item:         item,
		CurrentPrice: current,
		Diff:         current - ref,
		Pct:          (current - ref) * 100 / ref,
		Basis:        basis,
	}, true
}

// Classify puts items with a positive change in Profited, largest first, and
// items with a negative change in Losted, most negative first. Unchanged or
// unrankable items are left out. Ties keep their input order.
func Classify(items []Item) Result {
	res := Result{
		Profited: []Ranked{},
		Losted:   []Ranked{},
	}

	for _, item := range items {
		r, ok := Rank(item)
		if !ok {
			continue
		}
		switch {
		case r.Pct > 0:
			res.Profited = append(res.Profited, r)
		case r.Pct < 0:
			res.Losted = append(res.Losted, r)
		}
	}

	sort.SliceStable(res.Profited, func(i, j int) bool {
		return res.Profited[i].Pct > res.Profited[j].Pct
	})
	sort.SliceStable(res.Losted, func(i, j int) bool {
		return res.Losted[i].Pct < res.Losted[j].Pct
	})
	return res
}

// FilterSector keeps items of one sector. An empty sectorID keeps all.
func FilterSector(items []Item, sectorID string) []Item {
	if sectorID == "" {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.SectorID == sectorID {
			out = append(out, item)
		}
	}
	return out
}
