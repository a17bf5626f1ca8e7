package insight

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genRows() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflect.TypeOf(TrafficRow{}), map[string]gopter.Gen{
		"ProductID":   gen.IntRange(0, 20).Map(func(v int) string { return strconv.Itoa(v) }),
		"ProductName": gen.AlphaString(),
		"Views":       gen.Int64Range(0, 200),
	}))
}

func genInventory() gopter.Gen {
	return gen.MapOf(
		gen.IntRange(0, 20).Map(func(v int) string { return strconv.Itoa(v) }),
		gen.Int64Range(0, 300),
	).Map(func(m map[string]int64) InventoryLevels { return InventoryLevels(m) })
}

func TestCorrelate_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	th := DefaultThresholds()

	properties.Property("correlation is deterministic", prop.ForAll(
		func(rows []TrafficRow, inv InventoryLevels) bool {
			return reflect.DeepEqual(Correlate(rows, inv, th), Correlate(rows, inv, th))
		},
		genRows(), genInventory(),
	))

	properties.Property("every insight refers to a distinct known product", prop.ForAll(
		func(rows []TrafficRow, inv InventoryLevels) bool {
			seen := map[string]bool{}
			for _, in := range Correlate(rows, inv, th) {
				if seen[in.ProductID] {
					return false
				}
				seen[in.ProductID] = true
				if stock, ok := inv[in.ProductID]; !ok || stock != in.Stock {
					return false
				}
			}
			return true
		},
		genRows(), genInventory(),
	))

	properties.Property("insights follow traffic rank order", prop.ForAll(
		func(rows []TrafficRow, inv InventoryLevels) bool {
			rank := map[string]int{}
			for i, r := range rows {
				if _, ok := rank[r.ProductID]; !ok {
					rank[r.ProductID] = i
				}
			}
			last := -1
			for _, in := range Correlate(rows, inv, th) {
				if rank[in.ProductID] <= last {
					return false
				}
				last = rank[in.ProductID]
			}
			return true
		},
		genRows(), genInventory(),
	))

	properties.TestingRun(t)
}
