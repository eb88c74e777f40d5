package query

import (
	"time"

	"github.com/angas/dayahead-go/convert"
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
	"github.com/angas/dayahead-go/types/maybe"
)

// ForecastDeviceCostParams describes a planned device run: either a
// cheapest-block search (Blocks > 0) or an explicit half-open time window
// (Start/End set), never both.
type ForecastDeviceCostParams struct {
	Area       string            `json:"area"`
	Day        coordinator.Slot  `json:"day"`
	Resolution prices.Resolution `json:"resolution"`
	Tier       Tier              `json:"tier"`
	PowerKW    float64           `json:"power_kw"`
	Blocks     int               `json:"blocks"`
	Contiguous bool              `json:"contiguous"`
	Start      *time.Time        `json:"start,omitempty"`
	End        *time.Time        `json:"end,omitempty"`
}

type ForecastRow struct {
	Start     time.Time            `json:"start_time"`
	End       time.Time            `json:"end_time"`
	EnergyKWh float64              `json:"energy_kwh"`
	PriceKWh  maybe.Maybe[float64] `json:"price_kwh"`
	Cost      float64              `json:"cost"`
}

type ForecastDeviceCostResult struct {
	Area           string           `json:"area"`
	Day            coordinator.Slot `json:"day"`
	Rows           []ForecastRow    `json:"rows"`
	TotalEnergyKWh float64          `json:"total_energy_kwh"`
	TotalCost      float64          `json:"total_cost"`
	AvgPriceKWh    float64          `json:"avg_price_kwh"`
}

// ForecastDeviceCost prices a device run of the given power draw over the
// selected rows: energy = power x duration, cost = energy x per-kWh price
// at the requested tier. The average is cost-weighted.
func (s *Service) ForecastDeviceCost(p ForecastDeviceCostParams) (*ForecastDeviceCostResult, error) {
	if p.Tier == "" {
		p.Tier = TierMarket
	}
	if err := validateResolution(p.Resolution); err != nil {
		return nil, err
	}
	if p.PowerKW <= 0 {
		return nil, validationErrorf("power_kw must be positive, got %v", p.PowerKW)
	}

	explicit := p.Start != nil || p.End != nil
	if explicit && p.Blocks > 0 {
		return nil, validationErrorf("give either an explicit start/end window or a block count, not both")
	}
	if !explicit && p.Blocks <= 0 {
		return nil, validationErrorf("give either an explicit start/end window or a block count")
	}
	if explicit {
		if p.Start == nil || p.End == nil {
			return nil, validationErrorf("explicit window needs both start and end")
		}
		if !p.Start.Before(*p.End) {
			return nil, validationErrorf("window start must be before end")
		}
	} else if err := validateBlocks(p.Blocks, p.Resolution); err != nil {
		return nil, err
	}

	record, c, err := s.record(p.Area, p.Day)
	if err != nil {
		return nil, err
	}
	settings := c.Settings(p.Area)
	if err := validateTier(p.Tier, p.Area, settings); err != nil {
		return nil, err
	}

	var rows []prices.Row
	if explicit {
		rows = rowsInWindow(record.Rows(p.Resolution), *p.Start, *p.End)
	} else {
		rows = record.CheapestBlocks(p.Blocks, p.Resolution, p.Contiguous)
	}
	rows = prices.PresentRows(rows)
	if len(rows) == 0 {
		return nil, validationErrorf("no priced %s rows for area %q match the requested window",
			p.Resolution, p.Area)
	}

	result := &ForecastDeviceCostResult{Area: p.Area, Day: p.Day}
	for _, row := range rows {
		price := tierPriceKWh(row.Value, p.Tier, settings)
		energy := p.PowerKW * row.Duration().Hours()
		cost := energy * price.Value()
		result.Rows = append(result.Rows, ForecastRow{
			Start:     row.Start,
			End:       row.End,
			EnergyKWh: convert.SixDecimals(energy),
			PriceKWh:  price,
			Cost:      convert.SixDecimals(cost),
		})
		result.TotalEnergyKWh += energy
		result.TotalCost += cost
	}
	result.AvgPriceKWh = convert.SixDecimals(result.TotalCost / result.TotalEnergyKWh)
	result.TotalEnergyKWh = convert.SixDecimals(result.TotalEnergyKWh)
	result.TotalCost = convert.SixDecimals(result.TotalCost)

	return result, nil
}

// rowsInWindow selects the rows overlapping the half-open window
// [start, end). A row straddling either bound is included in full.
func rowsInWindow(rows []prices.Row, start, end time.Time) []prices.Row {
	var selected []prices.Row
	for _, row := range rows {
		if row.End.After(start) && row.Start.Before(end) {
			selected = append(selected, row)
		}
	}
	return selected
}
