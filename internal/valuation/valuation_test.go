package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-tracker/internal/models"
)

func f64(v float64) *float64 { return &v }

func holding(id, name string, shares, buy float64) models.IpoRecord {
	return models.IpoRecord{ID: id, CompanyName: name, InPortfolio: true, Shares: f64(shares), BuyPrice: f64(buy)}
}

func quote(name string, price float64) models.PriceQuote {
	return models.PriceQuote{CompanyName: name, Price: f64(price), Success: true}
}

func TestAggregate_MissingQuoteIsConservative(t *testing.T) {
	records := []models.IpoRecord{
		holding("x", "X", 10, 100),
		holding("y", "Y", 10, 100),
	}
	quotes := map[string]models.PriceQuote{"x": quote("X", 150)}

	got := Aggregate(records, quotes)

	require.Len(t, got.Holdings, 2)
	assert.Equal(t, 2000.0, got.TotalInvested)
	assert.Equal(t, 1500.0, got.TotalCurrentValue)
	assert.Equal(t, -25.0, got.TotalPctChange)

	x, y := got.Holdings[0], got.Holdings[1]
	assert.Equal(t, 150.0, *x.CMP)
	assert.Equal(t, 1500.0, *x.CurrentValue)
	assert.Equal(t, 50.0, *x.PctChange)
	assert.Nil(t, y.CMP)
	assert.Nil(t, y.CurrentValue)
	assert.Nil(t, y.PctChange)
	assert.Equal(t, 1000.0, y.Invested)
}

func TestAggregate_EmptyIsZero(t *testing.T) {
	got := Aggregate(nil, nil)

	assert.Empty(t, got.Holdings)
	assert.Equal(t, 0.0, got.TotalInvested)
	assert.Equal(t, 0.0, got.TotalCurrentValue)
	assert.Equal(t, 0.0, got.TotalPctChange)
	assert.False(t, math.IsNaN(got.TotalPctChange))
}

func TestAggregate_SkipsNonHoldings(t *testing.T) {
	records := []models.IpoRecord{
		holding("x", "X", 2, 50),
		{ID: "w", CompanyName: "Watched"},
	}

	got := Aggregate(records, map[string]models.PriceQuote{"w": quote("Watched", 10)})

	require.Len(t, got.Holdings, 1)
	assert.Equal(t, "x", got.Holdings[0].IpoID)
}

func TestAggregate_QuotesKeyedByID(t *testing.T) {
	// Two holdings of the same company name are valued independently.
	records := []models.IpoRecord{
		holding("a", "Acme", 1, 100),
		holding("b", "Acme", 1, 100),
	}
	got := Aggregate(records, map[string]models.PriceQuote{"b": quote("Acme", 120)})

	assert.Nil(t, got.Holdings[0].CMP)
	assert.Equal(t, 120.0, *got.Holdings[1].CMP)
	assert.Equal(t, 120.0, got.TotalCurrentValue)
}

func TestValueHolding(t *testing.T) {
	tests := []struct {
		name    string
		rec     models.IpoRecord
		quote   *models.PriceQuote
		cmp     *float64
		current *float64
		pct     *float64
	}{
		{"no quote", holding("1", "A", 5, 200), nil, nil, nil, nil},
		{"failed quote", holding("1", "A", 5, 200), &models.PriceQuote{Error: "timeout"}, nil, nil, nil},
		{"zero price", holding("1", "A", 5, 200), &models.PriceQuote{Price: f64(0), Success: true}, nil, nil, nil},
		{"gain", holding("1", "A", 5, 200), &models.PriceQuote{Price: f64(250), Success: true}, f64(250), f64(1250), f64(25)},
		{"loss", holding("1", "A", 4, 100), &models.PriceQuote{Price: f64(80), Success: true}, f64(80), f64(320), f64(-20)},
		{"zero buy price", holding("1", "A", 4, 0), &models.PriceQuote{Price: f64(80), Success: true}, f64(80), f64(320), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValueHolding(tt.rec, tt.quote)
			assert.Equal(t, tt.cmp, got.CMP)
			assert.Equal(t, tt.current, got.CurrentValue)
			assert.Equal(t, tt.pct, got.PctChange)
			assert.Equal(t, *tt.rec.Shares**tt.rec.BuyPrice, got.Invested)
		})
	}
}

func TestAggregate_DoesNotMutateInputs(t *testing.T) {
	records := []models.IpoRecord{holding("x", "X", 10, 100)}
	quotes := map[string]models.PriceQuote{"x": quote("X", 150)}

	got := Aggregate(records, quotes)
	*got.Holdings[0].CMP = 1

	assert.Equal(t, 150.0, *quotes["x"].Price)
	assert.Equal(t, 10.0, *records[0].Shares)
}

func TestHoldings(t *testing.T) {
	records := []models.IpoRecord{
		holding("x", "X", 10, 100),
		{ID: "w", CompanyName: "W"},
		{ID: "z", CompanyName: "Z", InPortfolio: true},
	}
	got := Holdings(records)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
}
