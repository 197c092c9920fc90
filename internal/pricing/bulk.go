package pricing

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"ipo-tracker/internal/models"
)

// FetchQuotes fetches one quote per distinct company name among records and
// returns them keyed by record id, ready for valuation.Aggregate. At most
// concurrency fetches run at once. Failed fetches are kept as unsuccessful
// quotes; only context cancellation is returned as an error.
func FetchQuotes(ctx context.Context, fetcher QuoteFetcher, records []models.IpoRecord, concurrency int) (map[string]models.PriceQuote, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	byName := make(map[string]models.PriceQuote)
	var names []string
	for _, rec := range records {
		if _, ok := byName[rec.CompanyName]; !ok {
			byName[rec.CompanyName] = models.PriceQuote{}
			names = append(names, rec.CompanyName)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			q, err := fetcher.FetchCurrentPrice(gctx, name)
			if err != nil {
				q = models.FailedQuote(name, err)
			}
			q.CompanyName = name
			mu.Lock()
			byName[name] = q
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]models.PriceQuote, len(records))
	for _, rec := range records {
		out[rec.ID] = byName[rec.CompanyName]
	}
	return out, nil
}

// PricesByName flattens a quote map to usable prices keyed by company name.
// Quotes without a live price are left out.
func PricesByName(quotes map[string]models.PriceQuote) map[string]float64 {
	out := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		if p, ok := q.LivePrice(); ok && q.Success {
			out[q.CompanyName] = p
		}
	}
	return out
}
