package query

import (
	"testing"
	"time"

	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
)

func TestBestNextWindowFallsThroughToTomorrow(t *testing.T) {
	// Today's four quarters all lie in the first hour of the day; by the
	// afternoon none of them is still in the future, so a four-block
	// window must come from tomorrow.
	svc := newFixture(t, fixtureOpts{
		today:    []*float64{fptr(50), fptr(60), fptr(70), fptr(80)},
		tomorrow: []*float64{fptr(40), fptr(10), fptr(20), fptr(30), fptr(90), fptr(95), fptr(99), fptr(98)},
	})

	result, err := svc.BestNextWindow(BestNextWindowParams{
		Area:       "NL",
		Scope:      ScopeEither,
		Resolution: prices.ResolutionQuarter,
		Blocks:     4,
		Contiguous: true,
	})
	if err != nil {
		t.Fatalf("BestNextWindow() unexpected error: %v", err)
	}

	if result.Day != coordinator.SlotTomorrow {
		t.Fatalf("expected result from tomorrow, got %s", result.Day)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}
	if result.Rows[0].MarketMWh.Value() != 40 {
		t.Errorf("expected window starting at 40, got %v", result.Rows[0].MarketMWh)
	}
	if !result.WindowStart.Before(result.WindowEnd) {
		t.Errorf("window bounds inverted")
	}
}

func TestBestNextWindowScopedToTodayFails(t *testing.T) {
	svc := newFixture(t, fixtureOpts{
		today:    []*float64{fptr(50), fptr(60), fptr(70), fptr(80)},
		tomorrow: []*float64{fptr(40), fptr(10), fptr(20), fptr(30)},
	})

	_, err := svc.BestNextWindow(BestNextWindowParams{
		Area:       "NL",
		Scope:      ScopeToday,
		Resolution: prices.ResolutionQuarter,
		Blocks:     4,
	})
	if err == nil || !IsValidationError(err) {
		t.Fatalf("expected validation error when today has no future rows, got %v", err)
	}
}

func TestBestNextWindowUsesFutureRowsOnly(t *testing.T) {
	// Clock inside today's first quarter: that row has not ended yet and
	// still qualifies, rows before it would not.
	svc := newFixture(t, fixtureOpts{
		today: []*float64{fptr(5), fptr(60), fptr(70), fptr(80)},
		clock: "2025-06-10 00:10:00",
	})

	result, err := svc.BestNextWindow(BestNextWindowParams{
		Area:       "NL",
		Scope:      ScopeToday,
		Resolution: prices.ResolutionQuarter,
		Blocks:     1,
	})
	if err != nil {
		t.Fatalf("BestNextWindow() unexpected error: %v", err)
	}
	if result.Rows[0].MarketMWh.Value() != 5 {
		t.Errorf("expected the still-running cheapest row, got %v", result.Rows[0].MarketMWh)
	}

	// Past the first quarter the cheapest remaining row wins instead.
	svc.SetClock(func() time.Time { return at(t, "2025-06-10 00:20:00") })
	result, err = svc.BestNextWindow(BestNextWindowParams{
		Area:       "NL",
		Scope:      ScopeToday,
		Resolution: prices.ResolutionQuarter,
		Blocks:     1,
	})
	if err != nil {
		t.Fatalf("BestNextWindow() unexpected error: %v", err)
	}
	if result.Rows[0].MarketMWh.Value() != 60 {
		t.Errorf("expected 60 after the first quarter ended, got %v", result.Rows[0].MarketMWh)
	}
}

func TestBestNextWindowBadScope(t *testing.T) {
	svc := newFixture(t, fixtureOpts{today: []*float64{fptr(50)}})

	_, err := svc.BestNextWindow(BestNextWindowParams{
		Area:       "NL",
		Scope:      "next_week",
		Resolution: prices.ResolutionQuarter,
		Blocks:     1,
	})
	if err == nil || !IsValidationError(err) {
		t.Fatalf("expected validation error for bad scope, got %v", err)
	}
}
