package track

import "sort"

// Consumption categories.
const (
	ConsumptionMoving = "moving"
	ConsumptionDrain  = "drain"
	ConsumptionRefill = "refill"
)

// Consumptions maps a consumption category to a quantity in liters.
type Consumptions map[string]float64

// intake categories add fuel to the tank and are left out of totals.
var intake = map[string]bool{
	ConsumptionRefill: true,
}

// Sum returns the total consumed quantity across all non-intake
// categories. Categories are summed in key order so the result is stable.
func (c Consumptions) Sum() float64 {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total float64
	for _, k := range keys {
		if intake[k] {
			continue
		}
		total += c[k]
	}
	return total
}
