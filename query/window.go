package query

import (
	"time"

	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
	"github.com/angas/dayahead-go/slice"
	"github.com/angas/dayahead-go/types/maybe"
)

// Scope limits which cached days the best-window search may use.
type Scope string

const (
	ScopeToday    Scope = "today"
	ScopeTomorrow Scope = "tomorrow"
	ScopeEither   Scope = "today_or_tomorrow"
)

func (s Scope) IsValid() bool {
	return s == ScopeToday || s == ScopeTomorrow || s == ScopeEither
}

func (s Scope) slots() []coordinator.Slot {
	switch s {
	case ScopeToday:
		return []coordinator.Slot{coordinator.SlotToday}
	case ScopeTomorrow:
		return []coordinator.Slot{coordinator.SlotTomorrow}
	default:
		return []coordinator.Slot{coordinator.SlotToday, coordinator.SlotTomorrow}
	}
}

type BestNextWindowParams struct {
	Area       string            `json:"area"`
	Scope      Scope             `json:"scope"`
	Resolution prices.Resolution `json:"resolution"`
	Tier       Tier              `json:"tier"`
	Blocks     int               `json:"blocks"`
	Contiguous bool              `json:"contiguous"`
}

type BestNextWindowResult struct {
	Area            string               `json:"area"`
	Day             coordinator.Slot     `json:"day"`
	DeliveryDate    string               `json:"delivery_date"`
	Resolution      prices.Resolution    `json:"resolution"`
	Rows            []RowView            `json:"rows"`
	WindowStart     time.Time            `json:"window_start"`
	WindowEnd       time.Time            `json:"window_end"`
	AveragePriceKWh maybe.Maybe[float64] `json:"average_price_kwh"`
}

// BestNextWindow finds the cheapest upcoming run window among rows that
// have not yet ended. Today is searched first; tomorrow is only used when
// today lacks enough qualifying future rows and the scope allows it.
func (s *Service) BestNextWindow(p BestNextWindowParams) (*BestNextWindowResult, error) {
	if p.Tier == "" {
		p.Tier = TierMarket
	}
	if p.Scope == "" {
		p.Scope = ScopeEither
	}
	if !p.Scope.IsValid() {
		return nil, validationErrorf("scope must be %q, %q or %q, got %q",
			ScopeToday, ScopeTomorrow, ScopeEither, p.Scope)
	}
	if err := validateResolution(p.Resolution); err != nil {
		return nil, err
	}
	if err := validateBlocks(p.Blocks, p.Resolution); err != nil {
		return nil, err
	}

	c, err := s.dir.forArea(p.Area)
	if err != nil {
		return nil, err
	}
	settings := c.Settings(p.Area)
	if err := validateTier(p.Tier, p.Area, settings); err != nil {
		return nil, err
	}

	now := s.now()
	for _, slot := range p.Scope.slots() {
		record := c.Get(p.Area, slot)
		if record == nil {
			continue
		}
		future := futureRows(record.Rows(p.Resolution), now)
		selected := prices.CheapestAmong(future, p.Blocks, p.Contiguous)
		if len(selected) == 0 {
			continue
		}

		views := rowViews(selected, p.Tier, settings)
		return &BestNextWindowResult{
			Area:            p.Area,
			Day:             slot,
			DeliveryDate:    record.DeliveryDate.String(),
			Resolution:      p.Resolution,
			Rows:            views,
			WindowStart:     selected[0].Start,
			WindowEnd:       selected[len(selected)-1].End,
			AveragePriceKWh: averagePriceKWh(views),
		}, nil
	}

	return nil, validationErrorf("area %q has no day in scope %q with %d future priced %s rows",
		p.Area, p.Scope, p.Blocks, p.Resolution)
}

// futureRows keeps the rows whose end lies strictly after now.
func futureRows(rows []prices.Row, now time.Time) []prices.Row {
	return slice.Filter(rows, func(row prices.Row) bool { return row.End.After(now) })
}
