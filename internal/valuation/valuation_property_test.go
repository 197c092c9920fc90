package valuation

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ipo-tracker/internal/models"
)

// Property: totals equal the sums over holdings, unquoted holdings add to
// invested capital only, and the total percentage is always finite.
func TestProperty_AggregateTotals(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("totals are consistent and finite", prop.ForAll(
		func(shares []float64, quoted []bool) bool {
			records := make([]models.IpoRecord, len(shares))
			quotes := make(map[string]models.PriceQuote)
			var invested, current float64
			for i, s := range shares {
				id := fmt.Sprintf("ipo-%d", i)
				buy := 10 + float64(i)
				records[i] = holding(id, id, s, buy)
				invested += s * buy
				if i < len(quoted) && quoted[i] {
					quotes[id] = quote(id, buy*1.5)
					current += s * buy * 1.5
				}
			}

			got := Aggregate(records, quotes)
			if len(got.Holdings) != len(records) {
				return false
			}
			if math.Abs(got.TotalInvested-invested) > 1e-6 || math.Abs(got.TotalCurrentValue-current) > 1e-6 {
				return false
			}
			if math.IsNaN(got.TotalPctChange) || math.IsInf(got.TotalPctChange, 0) {
				return false
			}
			return len(records) > 0 || got.TotalPctChange == 0
		},
		gen.SliceOf(gen.Float64Range(1, 1000)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
