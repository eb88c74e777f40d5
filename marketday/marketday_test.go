package marketday

import (
	"sync"
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func TestFromTimeUsesMarketDate(t *testing.T) {
	// 23:30 UTC on Jan 1st is already Jan 2nd in CET.
	tm := time.Date(2025, time.January, 1, 23, 30, 0, 0, time.UTC)
	if got := FromTime(tm); got != Day("2025-01-02") {
		t.Errorf("FromTime() expected 2025-01-02, got %s", got)
	}
}

func TestTodayAndTomorrow(t *testing.T) {
	tm := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	if got := Today(tm); got != Day("2025-06-15") {
		t.Errorf("Today() expected 2025-06-15, got %s", got)
	}
	if got := Tomorrow(tm); got != Day("2025-06-16") {
		t.Errorf("Tomorrow() expected 2025-06-16, got %s", got)
	}
}

func TestAfterCutoff(t *testing.T) {
	loc := mustLoc(t, "Europe/Amsterdam")
	tests := []struct {
		name     string
		at       time.Time
		expected bool
	}{
		{
			name:     "just before cutoff",
			at:       time.Date(2025, time.January, 10, 12, 59, 0, 0, loc),
			expected: false,
		},
		{
			name:     "at cutoff",
			at:       time.Date(2025, time.January, 10, 13, 0, 0, 0, loc),
			expected: true,
		},
		{
			name:     "evening",
			at:       time.Date(2025, time.January, 10, 22, 0, 0, 0, loc),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AfterCutoff(tt.at); got != tt.expected {
				t.Errorf("AfterCutoff(%v) expected %v, got %v", tt.at, tt.expected, got)
			}
		})
	}
}

func TestUntilCutoff(t *testing.T) {
	loc := mustLoc(t, "Europe/Amsterdam")

	before := time.Date(2025, time.January, 10, 12, 0, 0, 0, loc)
	if got := UntilCutoff(before); got != time.Hour {
		t.Errorf("UntilCutoff() expected 1h, got %v", got)
	}

	after := time.Date(2025, time.January, 10, 14, 0, 0, 0, loc)
	if got := UntilCutoff(after); got != 0 {
		t.Errorf("UntilCutoff() after cutoff expected 0, got %v", got)
	}
}

func TestUntilMidnight(t *testing.T) {
	loc := mustLoc(t, "Europe/Amsterdam")
	at := time.Date(2025, time.January, 10, 23, 0, 0, 0, loc)
	if got := UntilMidnight(at); got != time.Hour {
		t.Errorf("UntilMidnight() expected 1h, got %v", got)
	}
}

func TestUntilMidnightAcrossDstChange(t *testing.T) {
	loc := mustLoc(t, "Europe/Amsterdam")
	// The night of 2025-03-30 is one hour short in CET, clocks jump 02:00 -> 03:00.
	at := time.Date(2025, time.March, 30, 1, 0, 0, 0, loc)
	if got := UntilMidnight(at); got != 22*time.Hour {
		t.Errorf("UntilMidnight() on DST night expected 22h, got %v", got)
	}
}

func TestSetTimezone(t *testing.T) {
	if err := SetTimezone("Europe/Stockholm"); err != nil {
		t.Fatalf("SetTimezone() unexpected error: %v", err)
	}
	defer func() {
		if err := SetTimezone("Europe/Amsterdam"); err != nil {
			t.Fatalf("SetTimezone() restore failed: %v", err)
		}
	}()

	if err := SetTimezone("Not/AZone"); err == nil {
		t.Errorf("SetTimezone() expected error for unknown zone")
	}
}

// Config reloads swap the timezone while refresh loops keep reading it.
// Run with -race.
func TestSetTimezoneConcurrentWithReads(t *testing.T) {
	defer func() {
		if err := SetTimezone("Europe/Amsterdam"); err != nil {
			t.Fatalf("SetTimezone() restore failed: %v", err)
		}
	}()

	tm := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		zones := []string{"Europe/Stockholm", "Europe/Amsterdam"}
		for i := 0; i < 500; i++ {
			if err := SetTimezone(zones[i%len(zones)]); err != nil {
				t.Errorf("SetTimezone() unexpected error: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if got := Today(tm); got != Day("2025-06-15") {
					t.Errorf("Today() expected 2025-06-15, got %s", got)
					return
				}
				AfterCutoff(tm)
				UntilMidnight(tm)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(done)
	wg.Wait()
}
