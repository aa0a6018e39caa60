package pricing

import (
	"gonum.org/v1/gonum/stat"

	"github.com/homewatt/homewatt/core/model"
)

// Thresholds holds the absolute price bands in ct/kWh. All boundaries are
// inclusive.
type Thresholds struct {
	VeryCheapCt float64
	CheapCt     float64
	ExpensiveCt float64
}

// Classify maps a price to its level. A price at or below the very-cheap
// boundary is VERY_CHEAP, at or below cheap is CHEAP, at or above expensive
// is EXPENSIVE, otherwise NORMAL.
func (t Thresholds) Classify(price float64) model.PriceLevel {
	switch {
	case price <= t.VeryCheapCt:
		return model.PriceVeryCheap
	case price <= t.CheapCt:
		return model.PriceCheap
	case price >= t.ExpensiveCt:
		return model.PriceExpensive
	default:
		return model.PriceNormal
	}
}

// ScheduleStats summarizes the day's price schedule.
type ScheduleStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stats computes summary statistics over a price schedule. An empty
// schedule yields the zero value.
func Stats(schedule []model.PricePoint) ScheduleStats {
	if len(schedule) == 0 {
		return ScheduleStats{}
	}
	prices := make([]float64, len(schedule))
	min, max := schedule[0].Price, schedule[0].Price
	for i, p := range schedule {
		prices[i] = p.Price
		if p.Price < min {
			min = p.Price
		}
		if p.Price > max {
			max = p.Price
		}
	}
	mean, std := stat.MeanStdDev(prices, nil)
	if len(prices) < 2 {
		std = 0
	}
	return ScheduleStats{Mean: mean, StdDev: std, Min: min, Max: max}
}

// RelativeLevel classifies a price against the schedule statistics rather
// than the absolute bands: more than half a standard deviation below the
// mean is CHEAP, above is EXPENSIVE. Used for display only, never by the
// decision engine.
func RelativeLevel(price float64, st ScheduleStats) model.PriceLevel {
	if st.StdDev == 0 {
		return model.PriceNormal
	}
	switch {
	case price <= st.Mean-st.StdDev/2:
		return model.PriceCheap
	case price >= st.Mean+st.StdDev/2:
		return model.PriceExpensive
	default:
		return model.PriceNormal
	}
}
