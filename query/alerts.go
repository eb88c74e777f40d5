package query

import (
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
)

type PriceAlertsParams struct {
	Area       string            `json:"area"`
	Day        coordinator.Slot  `json:"day"`
	Resolution prices.Resolution `json:"resolution"`
	Tier       Tier              `json:"tier"`
	// Threshold is a per-kWh price at the requested tier. Optional.
	Threshold       *float64 `json:"threshold,omitempty"`
	TopN            int      `json:"top_n"`
	IncludeNegative bool     `json:"include_negative"`
}

// Alert is one alert group: whether it fired and the rows that made it
// fire.
type Alert struct {
	Triggered bool      `json:"triggered"`
	Rows      []RowView `json:"rows"`
}

type PriceAlertsResult struct {
	Area           string            `json:"area"`
	Day            coordinator.Slot  `json:"day"`
	Resolution     prices.Resolution `json:"resolution"`
	Cheapest       Alert             `json:"cheapest"`
	BelowThreshold *Alert            `json:"below_threshold,omitempty"`
	Negative       *Alert            `json:"negative,omitempty"`
}

// PriceAlerts reports the N cheapest rows, every row below the caller's
// per-kWh threshold, and every row whose per-kWh price at the requested
// tier is below zero.
func (s *Service) PriceAlerts(p PriceAlertsParams) (*PriceAlertsResult, error) {
	if p.Tier == "" {
		p.Tier = TierMarket
	}
	if err := validateResolution(p.Resolution); err != nil {
		return nil, err
	}
	if p.TopN < 1 || p.TopN > p.Resolution.MaxBlocks() {
		return nil, validationErrorf("top_n must be between 1 and %d, got %d",
			p.Resolution.MaxBlocks(), p.TopN)
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

	result := &PriceAlertsResult{
		Area:       p.Area,
		Day:        p.Day,
		Resolution: p.Resolution,
	}

	cheapest := cheapestUpTo(valid, p.TopN)
	result.Cheapest = Alert{
		Triggered: len(cheapest) > 0,
		Rows:      rowViews(cheapest, p.Tier, settings),
	}

	if p.Threshold != nil {
		var below []prices.Row
		for _, row := range valid {
			price := tierPriceKWh(row.Value, p.Tier, settings)
			if price.IsValid() && price.Value() < *p.Threshold {
				below = append(below, row)
			}
		}
		result.BelowThreshold = &Alert{
			Triggered: len(below) > 0,
			Rows:      rowViews(below, p.Tier, settings),
		}
	}

	if p.IncludeNegative {
		negative := negativeRows(valid, p.Tier, settings)
		result.Negative = &Alert{
			Triggered: len(negative) > 0,
			Rows:      rowViews(negative, p.Tier, settings),
		}
	}

	return result, nil
}
