// Package query is the read-only analytics layer over the coordinator
// cache: cheapest blocks, device cost forecasts, charge/discharge planning
// and price alerts. Every operation validates its parameters before it
// touches the cache and fails with a ValidationError rather than panicking
// or returning silently empty results.
package query

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angas/dayahead-go/calc"
	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/convert"
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
	"github.com/angas/dayahead-go/slice"
	"github.com/angas/dayahead-go/types/maybe"
)

// Tier selects which price a query operates on: the raw market price or
// the consumer price including tax, markup and VAT.
type Tier string

const (
	TierMarket   Tier = "market"
	TierConsumer Tier = "consumer"
)

func (t Tier) IsValid() bool {
	return t == TierMarket || t == TierConsumer
}

// ValidationError reports a bad parameter set or missing data, always with
// a human-readable reason.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Directory maps an area code to the coordinator serving it. It is built
// once at composition time and handed to the service, so area resolution
// never goes through shared global state.
type Directory map[string]*coordinator.Coordinator

// NewDirectory indexes the given coordinators by the areas they track.
func NewDirectory(coordinators ...*coordinator.Coordinator) Directory {
	dir := make(Directory)
	for _, c := range coordinators {
		for _, area := range c.Areas() {
			dir[area] = c
		}
	}
	return dir
}

func (d Directory) forArea(area string) (*coordinator.Coordinator, error) {
	c, ok := d[area]
	if !ok || !c.HasArea(area) {
		return nil, validationErrorf("area %q is not configured", area)
	}
	return c, nil
}

type Service struct {
	logger *slog.Logger
	dir    Directory
	now    func() time.Time
}

func New(logger *slog.Logger, dir Directory) *Service {
	return &Service{
		logger: logger.With(slog.String("module", "query")),
		dir:    dir,
		now:    time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// RowView is one selected delivery interval as reported by the query
// operations: the raw market price plus the per-kWh price at the tier the
// caller asked for.
type RowView struct {
	Start     time.Time            `json:"start_time"`
	End       time.Time            `json:"end_time"`
	MarketMWh maybe.Maybe[float64] `json:"market_mwh"`
	PriceKWh  maybe.Maybe[float64] `json:"price_kwh"`
}

func validateSlot(day coordinator.Slot) error {
	if day != coordinator.SlotToday && day != coordinator.SlotTomorrow {
		return validationErrorf("day must be %q or %q, got %q",
			coordinator.SlotToday, coordinator.SlotTomorrow, day)
	}
	return nil
}

func validateResolution(resolution prices.Resolution) error {
	if !resolution.IsValid() {
		return validationErrorf("resolution must be %q or %q, got %q",
			prices.ResolutionQuarter, prices.ResolutionHour, resolution)
	}
	return nil
}

func validateBlocks(blocks int, resolution prices.Resolution) error {
	if blocks < 1 || blocks > resolution.MaxBlocks() {
		return validationErrorf("blocks must be between 1 and %d at %s resolution, got %d",
			resolution.MaxBlocks(), resolution, blocks)
	}
	return nil
}

// validateTier checks that consumer pricing is enabled before any
// consumer-tier computation.
func validateTier(tier Tier, area string, settings config.AreaSettings) error {
	if !tier.IsValid() {
		return validationErrorf("tier must be %q or %q, got %q", TierMarket, TierConsumer, tier)
	}
	if tier == TierConsumer && !settings.ConsumerPriceEnabled {
		return validationErrorf("consumer pricing is disabled for area %q", area)
	}
	return nil
}

// record resolves the cached price record for one area and slot.
func (s *Service) record(area string, day coordinator.Slot) (*prices.Record, *coordinator.Coordinator, error) {
	if err := validateSlot(day); err != nil {
		return nil, nil, err
	}
	c, err := s.dir.forArea(area)
	if err != nil {
		return nil, nil, err
	}
	record := c.Get(area, day)
	if record == nil {
		return nil, nil, validationErrorf("no prices cached for area %q (%s)", area, day)
	}
	return record, c, nil
}

// tierPriceKWh converts a raw MWh market price to the per-kWh price at the
// requested tier, rounded to 6 decimals.
func tierPriceKWh(value maybe.Maybe[float64], tier Tier, settings config.AreaSettings) maybe.Maybe[float64] {
	kwh := calc.MWhToKWh(value)
	if tier == TierConsumer {
		kwh = calc.ConsumerPriceKWh(kwh, settings.EnergyTax, settings.SupplierMarkup, settings.VAT)
	}
	return maybe.Map(kwh, convert.SixDecimals)
}

// negativeRows keeps the rows whose per-kWh price at the requested tier is
// below zero. Tax, markup and VAT can lift a slightly negative market price
// above zero, so consumer-tier plans see fewer negative rows than the raw
// market curve has.
func negativeRows(rows []prices.Row, tier Tier, settings config.AreaSettings) []prices.Row {
	return slice.Filter(rows, func(row prices.Row) bool {
		price := tierPriceKWh(row.Value, tier, settings)
		return price.IsValid() && price.Value() < 0
	})
}

func rowViews(rows []prices.Row, tier Tier, settings config.AreaSettings) []RowView {
	return slice.Map(rows, func(row prices.Row) RowView {
		return RowView{
			Start:     row.Start,
			End:       row.End,
			MarketMWh: maybe.Map(row.Value, convert.FiveDecimals),
			PriceKWh:  tierPriceKWh(row.Value, tier, settings),
		}
	})
}
