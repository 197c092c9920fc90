package classify

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genItems() gopter.Gen {
	return gen.SliceOf(gen.IntRange(-50, 50)).Map(func(moves []int) []Item {
		items := make([]Item, len(moves))
		for i, m := range moves {
			ref := 100.0
			listing := ref + float64(m)
			items[i] = Item{
				ID:             fmt.Sprintf("%d", i),
				CompanyName:    fmt.Sprintf("C%d", i),
				ReferencePrice: &ref,
				ListingPrice:   &listing,
			}
		}
		return items
	})
}

// Property: classification is deterministic, buckets are sorted by the
// extremity of the move, and only non-zero movers are kept.
func TestProperty_ClassifyDeterministicAndOrdered(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("same input gives same output", prop.ForAll(
		func(items []Item) bool {
			return reflect.DeepEqual(Classify(items), Classify(items))
		},
		genItems(),
	))

	properties.Property("buckets are ordered and partition the movers", prop.ForAll(
		func(items []Item) bool {
			res := Classify(items)
			for i := 1; i < len(res.Profited); i++ {
				if res.Profited[i-1].Pct < res.Profited[i].Pct {
					return false
				}
			}
			for i := 1; i < len(res.Losted); i++ {
				if res.Losted[i-1].Pct > res.Losted[i].Pct {
					return false
				}
			}
			movers := 0
			for _, it := range items {
				if *it.ListingPrice != *it.ReferencePrice {
					movers++
				}
			}
			return len(res.Profited)+len(res.Losted) == movers
		},
		genItems(),
	))

	properties.TestingRun(t)
}
