package prices

import (
	"sort"

	"github.com/angas/dayahead-go/slice"
)

// CheapestBlocks finds the n cheapest rows at the requested resolution.
//
// With contiguous=true a window of n consecutive present-valued rows with
// the lowest mean wins, earliest window on ties. The window slides over the
// filtered present-valued rows, so it can span a real time gap when rows in
// between are absent; this matches the behavior automations already depend
// on even though it is arguably surprising.
//
// With contiguous=false the n individually cheapest rows are returned,
// re-sorted into chronological order.
//
// Returns nil when n is out of range or no present-valued rows exist.
func (r *Record) CheapestBlocks(n int, resolution Resolution, contiguous bool) []Row {
	return CheapestAmong(r.Rows(resolution), n, contiguous)
}

// CheapestAmong applies the cheapest-block selection rule to an arbitrary
// row slice, e.g. one already narrowed down to future rows.
func CheapestAmong(rows []Row, n int, contiguous bool) []Row {
	valid := PresentRows(rows)

	if len(valid) == 0 || n <= 0 || n > len(valid) {
		return nil
	}

	if contiguous {
		return cheapestWindow(valid, n)
	}

	picked := make([]Row, len(valid))
	copy(picked, valid)
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Value.Value() < picked[j].Value.Value()
	})
	picked = picked[:n]
	sort.Slice(picked, func(i, j int) bool {
		return picked[i].Start.Before(picked[j].Start)
	})
	return picked
}

// PresentRows returns the rows carrying a value, order preserved.
func PresentRows(rows []Row) []Row {
	return slice.Filter(rows, func(row Row) bool { return row.Value.IsValid() })
}

func cheapestWindow(valid []Row, n int) []Row {
	bestStart := 0
	bestSum := windowSum(valid[:n])
	for i := 1; i+n <= len(valid); i++ {
		// Recompute per window instead of a rolling sum so float drift
		// can never flip a tie away from the earliest window.
		sum := windowSum(valid[i : i+n])
		if sum < bestSum {
			bestSum = sum
			bestStart = i
		}
	}

	return valid[bestStart : bestStart+n]
}

func windowSum(rows []Row) float64 {
	sum := 0.0
	for _, row := range rows {
		sum += row.Value.Value()
	}
	return sum
}
