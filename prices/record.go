// Package prices holds the parsed, immutable representation of one area's
// one-day price curve, plus the derived series and search helpers.
package prices

import (
	"slices"
	"time"

	"github.com/angas/dayahead-go/convert"
	"github.com/angas/dayahead-go/marketday"
	"github.com/angas/dayahead-go/nordpool"
	"github.com/angas/dayahead-go/types/maybe"
)

type Status string

const (
	StatusPreliminary Status = "Preliminary"
	StatusFinal       Status = "Final"
)

type Resolution string

const (
	ResolutionQuarter Resolution = "quarter"
	ResolutionHour    Resolution = "hour"
)

func (r Resolution) IsValid() bool {
	return r == ResolutionQuarter || r == ResolutionHour
}

// MaxBlocks is the number of rows a full day can hold at this resolution.
func (r Resolution) MaxBlocks() int {
	if r == ResolutionQuarter {
		return 96
	}
	return 24
}

// Row is one delivery interval, half-open [Start, End). Value is the raw
// market price per MWh, absent when the source had no price for the area.
type Row struct {
	Start time.Time            `json:"startTime"`
	End   time.Time            `json:"endTime"`
	Value maybe.Maybe[float64] `json:"value"`
}

// Duration returns the row's delivery interval length.
func (r Row) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether t falls within [Start, End).
func (r Row) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

type BlockAggregate struct {
	Name    string    `json:"blockName"`
	Start   time.Time `json:"deliveryStart"`
	End     time.Time `json:"deliveryEnd"`
	Average float64   `json:"average"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
}

type Stats struct {
	Min     maybe.Maybe[float64] `json:"min"`
	Max     maybe.Maybe[float64] `json:"max"`
	Average maybe.Maybe[float64] `json:"average"`
	Count   int                  `json:"count"`
}

// Record is one area's price curve for one delivery day. A Record is never
// mutated after construction; the coordinator replaces whole records on
// refresh, so readers may hold on to one as a consistent snapshot.
type Record struct {
	Area          string
	DeliveryDate  marketday.Day
	Currency      string
	Status        Status
	AreaAvailable bool
	Quarters      []Row
	Hours         []Row
	Blocks        []BlockAggregate
}

// NewRecord parses a data portal payload for one area. The payload's entry
// order is chronological and is preserved as-is.
func NewRecord(payload *nordpool.DayAheadPayload, area string) *Record {
	r := &Record{
		Area:         area,
		DeliveryDate: marketday.Day(payload.DeliveryDateCET),
		Currency:     payload.Currency,
		Status:       parseStatus(payload, area),
	}

	r.Quarters = make([]Row, 0, len(payload.MultiAreaEntries))
	for _, entry := range payload.MultiAreaEntries {
		value := maybe.None[float64]()
		if price, ok := entry.EntryPerArea[area]; ok {
			value = maybe.Some(price)
			r.AreaAvailable = true
		}
		r.Quarters = append(r.Quarters, Row{
			Start: entry.DeliveryStart,
			End:   entry.DeliveryEnd,
			Value: value,
		})
	}

	r.Hours = deriveHours(r.Quarters)

	for _, block := range payload.BlockPriceAggregates {
		agg, ok := block.AveragePricePerArea[area]
		if !ok {
			continue
		}
		r.Blocks = append(r.Blocks, BlockAggregate{
			Name:    block.BlockName,
			Start:   block.DeliveryStart,
			End:     block.DeliveryEnd,
			Average: agg.Average,
			Min:     agg.Min,
			Max:     agg.Max,
		})
	}

	return r
}

func parseStatus(payload *nordpool.DayAheadPayload, area string) Status {
	for _, entry := range payload.AreaStates {
		if slices.Contains(entry.Areas, area) {
			if entry.State != "" {
				return Status(entry.State)
			}
			break
		}
	}
	return StatusPreliminary
}

// deriveHours averages consecutive position-groups of four quarters. The
// source is quarter-aligned from local midnight, so grouping by position is
// grouping by hour. A group without any present value yields an absent hour.
func deriveHours(quarters []Row) []Row {
	var hours []Row
	for i := 0; i < len(quarters); i += 4 {
		group := quarters[i:min(i+4, len(quarters))]
		sum, count := 0.0, 0
		for _, q := range group {
			if q.Value.IsValid() {
				sum += q.Value.Value()
				count++
			}
		}
		value := maybe.None[float64]()
		if count > 0 {
			value = maybe.Some(convert.FiveDecimals(sum / float64(count)))
		}
		hours = append(hours, Row{
			Start: group[0].Start,
			End:   group[len(group)-1].End,
			Value: value,
		})
	}
	return hours
}

func (r *Record) IsFinal() bool {
	return r.Status == StatusFinal
}

// Rows returns the series at the requested resolution.
func (r *Record) Rows(resolution Resolution) []Row {
	if resolution == ResolutionHour {
		return r.Hours
	}
	return r.Quarters
}

// PriceAt returns the market price per MWh at instant t, absent when no row
// covers t (gaps, out of range, DST-shortened days).
func (r *Record) PriceAt(t time.Time, resolution Resolution) maybe.Maybe[float64] {
	t = t.UTC()
	for _, row := range r.Rows(resolution) {
		if row.Contains(t) {
			return row.Value
		}
	}
	return maybe.None[float64]()
}

// Stats returns min, max and mean over all present values at the requested
// resolution. All three are absent when no value is present.
func (r *Record) Stats(resolution Resolution) Stats {
	var values []float64
	for _, row := range r.Rows(resolution) {
		if row.Value.IsValid() {
			values = append(values, row.Value.Value())
		}
	}
	if len(values) == 0 {
		return Stats{
			Min:     maybe.None[float64](),
			Max:     maybe.None[float64](),
			Average: maybe.None[float64](),
		}
	}

	minVal, maxVal, sum := values[0], values[0], 0.0
	for _, v := range values {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
		sum += v
	}

	return Stats{
		Min:     maybe.Some(convert.FiveDecimals(minVal)),
		Max:     maybe.Some(convert.FiveDecimals(maxVal)),
		Average: maybe.Some(convert.FiveDecimals(sum / float64(len(values)))),
		Count:   len(values),
	}
}
