package pricing

import (
	"context"

	"ipo-tracker/internal/models"
	"ipo-tracker/internal/valuation"
)

// BaseView merges rec with its holding valuation. A holding is valued at
// its live quote when one can be fetched; the view is otherwise left without
// a CMP for ResolveMissingPrice to fill.
func BaseView(ctx context.Context, rec models.IpoRecord, fetcher QuoteFetcher) models.CompanyView {
	if !rec.IsHolding() {
		return valuation.Merge(&rec, nil)
	}

	var quote *models.PriceQuote
	if q, err := fetcher.FetchCurrentPrice(ctx, rec.CompanyName); err == nil {
		quote = &q
	}
	hv := valuation.ValueHolding(rec, quote)
	return valuation.Merge(&rec, &hv)
}

// Company builds the complete view of rec, falling back to a price lookup
// when the holding path produced no CMP. A returned error is a *QuoteError;
// the view is usable regardless.
func Company(ctx context.Context, rec models.IpoRecord, fetcher QuoteFetcher) (models.CompanyView, error) {
	return ResolveMissingPrice(ctx, BaseView(ctx, rec, fetcher), fetcher)
}
