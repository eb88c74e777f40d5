package coordinator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/marketday"
	"github.com/angas/dayahead-go/nordpool"
	"github.com/angas/dayahead-go/prices"
)

var amsterdam = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		panic(err)
	}
	return loc
}()

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, amsterdam)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*nordpool.DayAheadPayload
	errs      map[string]error
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]*nordpool.DayAheadPayload),
		errs:      make(map[string]error),
	}
}

func (f *fakeFetcher) FetchDayAhead(ctx context.Context, area string, day marketday.Day, currency string) (*nordpool.DayAheadPayload, error) {
	key := area + "|" + day.String()
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	if p := f.responses[key]; p != nil {
		return p, nil
	}
	return nil, nordpool.ErrNotPublished
}

func (f *fakeFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func testPayload(date, area, state string, values ...float64) *nordpool.DayAheadPayload {
	start := marketday.Day(date).Time().UTC()
	p := &nordpool.DayAheadPayload{
		DeliveryDateCET: date,
		Currency:        "EUR",
		AreaStates: []nordpool.AreaState{
			{State: state, Areas: []string{area}},
		},
	}
	for i, v := range values {
		p.MultiAreaEntries = append(p.MultiAreaEntries, nordpool.MultiAreaEntry{
			DeliveryStart: start.Add(time.Duration(i) * 15 * time.Minute),
			DeliveryEnd:   start.Add(time.Duration(i+1) * 15 * time.Minute),
			EntryPerArea:  map[string]float64{area: v},
		})
	}
	return p
}

func testCoordinator(fetcher Fetcher, areas ...string) *Coordinator {
	cfg := &config.AppConfig{
		Market: config.AppConfigMarket{Areas: areas},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, fetcher, nil, cfg)
}

func TestRefreshBeforeCutoffFetchesOnlyToday(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50, 60, 70, 80)

	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 10:00:00") })

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}

	if c.Today("NL") == nil {
		t.Errorf("expected today record cached")
	}
	if c.Tomorrow("NL") != nil {
		t.Errorf("expected no tomorrow record before cutoff")
	}
	if n := fetcher.callCount("NL|2025-06-11"); n != 0 {
		t.Errorf("expected no fetch for tomorrow before cutoff, got %d", n)
	}
}

func TestRefreshAfterCutoffFetchesTomorrow(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50, 60)
	fetcher.responses["NL|2025-06-11"] = testPayload("2025-06-11", "NL", "Preliminary", 40, 30)

	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 13:30:00") })

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}

	tomorrow := c.Tomorrow("NL")
	if tomorrow == nil {
		t.Fatalf("expected tomorrow record cached after cutoff")
	}
	if tomorrow.Status != prices.StatusPreliminary {
		t.Errorf("expected Preliminary status, got %s", tomorrow.Status)
	}
}

func TestRefreshRepollsPreliminaryTomorrow(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50)
	fetcher.responses["NL|2025-06-11"] = testPayload("2025-06-11", "NL", "Preliminary", 40)

	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 13:30:00") })

	c.Refresh(context.Background())
	c.Refresh(context.Background())
	if n := fetcher.callCount("NL|2025-06-11"); n != 2 {
		t.Errorf("expected preliminary tomorrow re-polled, got %d fetches", n)
	}

	fetcher.responses["NL|2025-06-11"] = testPayload("2025-06-11", "NL", "Final", 40)
	c.Refresh(context.Background())
	c.Refresh(context.Background())
	if n := fetcher.callCount("NL|2025-06-11"); n != 3 {
		t.Errorf("expected final tomorrow left alone, got %d fetches", n)
	}
}

func TestRefreshNotReadyUntilFirstSuccess(t *testing.T) {
	fetcher := newFakeFetcher()
	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 10:00:00") })

	if err := c.Refresh(context.Background()); err != ErrNotReady {
		t.Fatalf("expected ErrNotReady while nothing published, got %v", err)
	}
	if c.Ready() {
		t.Errorf("expected not ready")
	}

	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}

	// Once a record is cached, later failing cycles serve stale data
	// instead of failing.
	delete(fetcher.responses, "NL|2025-06-10")
	c.SetClock(func() time.Time { return at(t, "2025-06-11 00:10:00") })
	if err := c.Refresh(context.Background()); err != nil {
		t.Errorf("expected no error with stale cache, got %v", err)
	}
}

func TestRefreshRolloverEvictsTomorrow(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50)
	fetcher.responses["NL|2025-06-11"] = testPayload("2025-06-11", "NL", "Final", 40)

	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 14:00:00") })
	c.Refresh(context.Background())

	if c.Today("NL") == nil || c.Tomorrow("NL") == nil {
		t.Fatalf("expected both slots cached")
	}

	// Past midnight the old today is stale and the old tomorrow must not
	// linger in the tomorrow slot.
	c.SetClock(func() time.Time { return at(t, "2025-06-11 00:05:00") })
	c.Refresh(context.Background())

	today := c.Today("NL")
	if today == nil || today.DeliveryDate != marketday.Day("2025-06-11") {
		t.Fatalf("expected today re-fetched for 2025-06-11, got %+v", today)
	}
	if c.Tomorrow("NL") != nil {
		t.Errorf("expected tomorrow slot evicted on rollover")
	}
}

func TestRefreshDiscardsUnavailableArea(t *testing.T) {
	fetcher := newFakeFetcher()
	payload := testPayload("2025-06-10", "SE3", "Final", 50)
	payload.AreaStates[0].Areas = []string{"NL", "SE3"}
	for i := range payload.MultiAreaEntries {
		delete(payload.MultiAreaEntries[i].EntryPerArea, "SE3")
		payload.MultiAreaEntries[i].EntryPerArea["SE4"] = 12
	}
	fetcher.responses["NL|2025-06-10"] = payload

	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 10:00:00") })

	if err := c.Refresh(context.Background()); err != ErrNotReady {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if c.Today("NL") != nil {
		t.Errorf("expected record without the area's prices to be discarded")
	}
}

func TestRefreshFetchesAllAreasIndependently(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50)
	fetcher.errs["BE|2025-06-10"] = context.DeadlineExceeded

	c := testCoordinator(fetcher, "NL", "BE")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 10:00:00") })

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("one area's failure must not fail the cycle: %v", err)
	}
	if c.Today("NL") == nil {
		t.Errorf("expected NL cached despite BE failing")
	}
	if c.Today("BE") != nil {
		t.Errorf("expected BE slot left empty")
	}
}

func TestRefreshPublishesSummary(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50, 60)

	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 10:00:00") })
	c.Refresh(context.Background())

	select {
	case s := <-c.C:
		if s.Area != "NL" || s.Slot != SlotToday || s.Rows != 2 {
			t.Errorf("unexpected summary: %+v", s)
		}
		if s.Status != prices.StatusFinal {
			t.Errorf("expected Final status in summary, got %s", s.Status)
		}
	default:
		t.Fatalf("expected a refresh summary on C")
	}
}

func TestIntervalPolicy(t *testing.T) {
	fetcher := newFakeFetcher()
	c := testCoordinator(fetcher, "NL")

	refreshAt := func(value string) {
		now := at(t, value)
		c.SetClock(func() time.Time { return now })
		c.Refresh(context.Background())
	}

	t.Run("today missing polls fast", func(t *testing.T) {
		refreshAt("2025-06-10 10:00:00")
		if c.Interval() != time.Minute {
			t.Errorf("expected 1m, got %v", c.Interval())
		}
	})

	t.Run("before cutoff sleeps up to an hour", func(t *testing.T) {
		fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50)
		refreshAt("2025-06-10 10:00:00")
		if c.Interval() != time.Hour {
			t.Errorf("expected 1h, got %v", c.Interval())
		}
	})

	t.Run("wakes up at the cutoff", func(t *testing.T) {
		refreshAt("2025-06-10 12:10:00")
		if c.Interval() != 50*time.Minute {
			t.Errorf("expected 50m until cutoff, got %v", c.Interval())
		}
	})

	t.Run("interval floored near the cutoff", func(t *testing.T) {
		refreshAt("2025-06-10 12:59:30")
		if c.Interval() != time.Minute {
			t.Errorf("expected 1m floor, got %v", c.Interval())
		}
	})

	t.Run("after cutoff with preliminary tomorrow polls fast", func(t *testing.T) {
		fetcher.responses["NL|2025-06-11"] = testPayload("2025-06-11", "NL", "Preliminary", 40)
		refreshAt("2025-06-10 13:30:00")
		if c.Interval() != time.Minute {
			t.Errorf("expected 1m while tomorrow preliminary, got %v", c.Interval())
		}
	})

	t.Run("after cutoff with final tomorrow sleeps up to an hour", func(t *testing.T) {
		fetcher.responses["NL|2025-06-11"] = testPayload("2025-06-11", "NL", "Final", 40)
		refreshAt("2025-06-10 13:30:00")
		if c.Interval() != time.Hour {
			t.Errorf("expected 1h, got %v", c.Interval())
		}
	})

	t.Run("interval capped by midnight", func(t *testing.T) {
		refreshAt("2025-06-10 23:30:00")
		if c.Interval() != 30*time.Minute {
			t.Errorf("expected 30m until midnight, got %v", c.Interval())
		}
	})
}

func TestDiagnosticsSnapshot(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.responses["NL|2025-06-10"] = testPayload("2025-06-10", "NL", "Final", 50, 60, 70, 80)

	c := testCoordinator(fetcher, "NL")
	c.SetClock(func() time.Time { return at(t, "2025-06-10 10:00:00") })
	c.Refresh(context.Background())

	d := c.Diagnostics()
	if !d.Ready {
		t.Errorf("expected ready")
	}
	area, ok := d.Areas["NL"]
	if !ok {
		t.Fatalf("expected NL in diagnostics")
	}
	if !area.Today.Cached || area.Today.DeliveryDate != "2025-06-10" {
		t.Errorf("unexpected today diagnostics: %+v", area.Today)
	}
	if area.Today.Quarters != 4 || area.Today.Hours != 1 {
		t.Errorf("unexpected row counts: %+v", area.Today)
	}
	if area.Tomorrow.Cached {
		t.Errorf("expected tomorrow uncached")
	}
	if area.Today.LastFetch == nil {
		t.Errorf("expected last fetch timestamp")
	}
}
