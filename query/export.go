package query

import (
	"sort"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
)

// ChargeMode controls which rows qualify as charge blocks.
type ChargeMode string

const (
	// ChargeNegativeOnly charges only during below-zero prices. When fewer
	// negative rows exist than requested the plan comes up short, it never
	// substitutes non-negative rows.
	ChargeNegativeOnly ChargeMode = "negative_only"
	// ChargeNegativeOrLowest prefers negative rows, falling back to the
	// overall cheapest only when no negative rows exist at all.
	ChargeNegativeOrLowest ChargeMode = "negative_or_lowest"
	// ChargeLowest always uses the overall cheapest rows.
	ChargeLowest ChargeMode = "lowest"
)

func (m ChargeMode) IsValid() bool {
	return m == ChargeNegativeOnly || m == ChargeNegativeOrLowest || m == ChargeLowest
}

type ExportStrategyParams struct {
	Area            string            `json:"area"`
	Day             coordinator.Slot  `json:"day"`
	Resolution      prices.Resolution `json:"resolution"`
	Tier            Tier              `json:"tier"`
	ChargeBlocks    int               `json:"charge_blocks"`
	DischargeBlocks int               `json:"discharge_blocks"`
	ChargeMode      ChargeMode        `json:"charge_mode"`
}

type ExportStrategyResult struct {
	Area                  string            `json:"area"`
	Day                   coordinator.Slot  `json:"day"`
	Resolution            prices.Resolution `json:"resolution"`
	ChargeMode            ChargeMode        `json:"charge_mode"`
	ChargeRows            []RowView         `json:"charge_rows"`
	DischargeRows         []RowView         `json:"discharge_rows"`
	ChargeBlocksRequested int               `json:"charge_blocks_requested"`
	ChargeBlocksShort     bool              `json:"charge_blocks_short"`
}

// ExportStrategy plans battery charge and discharge blocks for one cached
// day: the cheapest rows per charge mode for charging, the most expensive
// rows for discharging, both chronological. ChargeBlocksShort flags a
// negative-only plan that found fewer negative rows than requested.
func (s *Service) ExportStrategy(p ExportStrategyParams) (*ExportStrategyResult, error) {
	if p.Tier == "" {
		p.Tier = TierMarket
	}
	if p.ChargeMode == "" {
		p.ChargeMode = ChargeLowest
	}
	if !p.ChargeMode.IsValid() {
		return nil, validationErrorf("charge_mode must be %q, %q or %q, got %q",
			ChargeNegativeOnly, ChargeNegativeOrLowest, ChargeLowest, p.ChargeMode)
	}
	if err := validateResolution(p.Resolution); err != nil {
		return nil, err
	}
	if p.ChargeBlocks < 0 || p.ChargeBlocks > p.Resolution.MaxBlocks() {
		return nil, validationErrorf("charge_blocks must be between 0 and %d, got %d",
			p.Resolution.MaxBlocks(), p.ChargeBlocks)
	}
	if p.DischargeBlocks < 0 || p.DischargeBlocks > p.Resolution.MaxBlocks() {
		return nil, validationErrorf("discharge_blocks must be between 0 and %d, got %d",
			p.Resolution.MaxBlocks(), p.DischargeBlocks)
	}
	if p.ChargeBlocks == 0 && p.DischargeBlocks == 0 {
		return nil, validationErrorf("at least one of charge_blocks and discharge_blocks must be positive")
	}

	record, c, err := s.record(p.Area, p.Day)
	if err != nil {
		return nil, err
	}
	settings := c.Settings(p.Area)
	if err := validateTier(p.Tier, p.Area, settings); err != nil {
		return nil, err
	}

	valid := prices.PresentRows(record.Rows(p.Resolution))
	if len(valid) == 0 {
		return nil, validationErrorf("area %q has no priced %s rows for %s", p.Area, p.Resolution, p.Day)
	}

	result := &ExportStrategyResult{
		Area:                  p.Area,
		Day:                   p.Day,
		Resolution:            p.Resolution,
		ChargeMode:            p.ChargeMode,
		ChargeBlocksRequested: p.ChargeBlocks,
	}

	if p.ChargeBlocks > 0 {
		charge := chargeRows(valid, p.ChargeBlocks, p.ChargeMode, p.Tier, settings)
		result.ChargeRows = rowViews(charge, p.Tier, settings)
		result.ChargeBlocksShort = len(charge) < p.ChargeBlocks
	}

	if p.DischargeBlocks > 0 {
		discharge := mostExpensiveRows(valid, p.DischargeBlocks)
		result.DischargeRows = rowViews(discharge, p.Tier, settings)
	}

	return result, nil
}

// chargeRows judges negativity on the per-kWh price at the requested tier,
// not the raw market value.
func chargeRows(valid []prices.Row, n int, mode ChargeMode, tier Tier, settings config.AreaSettings) []prices.Row {
	negative := negativeRows(valid, tier, settings)

	switch mode {
	case ChargeNegativeOnly:
		if len(negative) == 0 {
			return nil
		}
		return cheapestUpTo(negative, n)
	case ChargeNegativeOrLowest:
		if len(negative) > 0 {
			return cheapestUpTo(negative, n)
		}
		return cheapestUpTo(valid, n)
	default:
		return cheapestUpTo(valid, n)
	}
}

// cheapestUpTo picks min(n, len(rows)) cheapest rows, chronological.
func cheapestUpTo(rows []prices.Row, n int) []prices.Row {
	picked := make([]prices.Row, len(rows))
	copy(picked, rows)
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Value.Value() < picked[j].Value.Value()
	})
	picked = picked[:min(n, len(picked))]
	sort.Slice(picked, func(i, j int) bool {
		return picked[i].Start.Before(picked[j].Start)
	})
	return picked
}

func mostExpensiveRows(rows []prices.Row, n int) []prices.Row {
	picked := make([]prices.Row, len(rows))
	copy(picked, rows)
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Value.Value() > picked[j].Value.Value()
	})
	picked = picked[:min(n, len(picked))]
	sort.Slice(picked, func(i, j int) bool {
		return picked[i].Start.Before(picked[j].Start)
	})
	return picked
}
