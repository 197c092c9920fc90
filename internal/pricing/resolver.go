// Package pricing fills in live prices: single-company fallback resolution,
// bulk quote fetching, and guarding against results that arrive too late.
package pricing

import (
	"context"

	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/models"
	"ipo-tracker/pkg/utils"
)

// QuoteFetcher fetches the current market price of a company by name.
type QuoteFetcher interface {
	FetchCurrentPrice(ctx context.Context, companyName string) (models.PriceQuote, error)
}

// QuoteFetcherFunc adapts a function to QuoteFetcher.
type QuoteFetcherFunc func(ctx context.Context, companyName string) (models.PriceQuote, error)

// FetchCurrentPrice calls f.
func (f QuoteFetcherFunc) FetchCurrentPrice(ctx context.Context, companyName string) (models.PriceQuote, error) {
	return f(ctx, companyName)
}

// ResolveMissingPrice fetches a live price for a view that has none.
//
// On success CMP is set; when the issue price parses to a positive number,
// PctChange is recomputed against it and, if shares are known, so is
// CurrentValue. On failure the price fields stay nil, PriceError carries the
// message, and the QuoteError is returned alongside the still-usable view.
// A view that already has a CMP is returned unchanged.
func ResolveMissingPrice(ctx context.Context, view models.CompanyView, fetcher QuoteFetcher) (models.CompanyView, error) {
	if view.CMP != nil {
		return view, nil
	}

	quote, err := fetcher.FetchCurrentPrice(ctx, view.CompanyName)
	if err != nil {
		qerr := asQuoteError(view.CompanyName, err)
		view.PriceError = qerr.Error()
		return view, qerr
	}

	price, ok := quote.LivePrice()
	if !quote.Success || !ok {
		msg := quote.Error
		if msg == "" {
			msg = "no price returned"
		}
		qerr := apperrors.NewQuoteError(view.CompanyName, msg, nil)
		view.PriceError = qerr.Error()
		return view, qerr
	}

	return applyPrice(view, price), nil
}

func applyPrice(view models.CompanyView, price float64) models.CompanyView {
	view.CMP = &price
	view.PriceError = ""

	issue, ok := utils.ParsePositivePrice(view.IssuePrice)
	if !ok {
		return view
	}

	pct := (price - issue) * 100 / issue
	view.PctChange = &pct
	if view.Shares != nil {
		current := *view.Shares * price
		view.CurrentValue = &current
	}
	return view
}

func asQuoteError(company string, err error) *apperrors.QuoteError {
	var qerr *apperrors.QuoteError
	if apperrors.As(err, &qerr) {
		return qerr
	}
	return apperrors.NewQuoteError(company, "fetch failed", err)
}
