// Package marketday holds the calendar math for the Nord Pool delivery day.
// Day-ahead prices are keyed by the market-local calendar date (CET/CEST by
// default), and tomorrow's curve is published around a fixed local cutoff
// hour. All deadline helpers take an explicit instant so callers control the
// clock.
package marketday

import (
	"fmt"
	"sync/atomic"
	"time"
)

const dateLayout = "2006-01-02"

// PublicationHour is the local hour at which tomorrow's prices are expected.
const PublicationHour = 13

var marketLoc atomic.Pointer[time.Location]

func init() {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		panic(fmt.Sprintf("failed to load market location: %v", err))
	}
	marketLoc.Store(loc)
}

// SetTimezone swaps the market location. Config reloads call this while
// refresh loops are reading it, hence the atomic pointer.
func SetTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}
	marketLoc.Store(loc)
	return nil
}

func location() *time.Location {
	return marketLoc.Load()
}

// Day is a market-local calendar date, the cache-validity key for one
// delivery day's price curve.
type Day string

func (d Day) String() string {
	return string(d)
}

func (d Day) IsZero() bool {
	return d == ""
}

// Time returns local midnight at the start of the day.
func (d Day) Time() time.Time {
	t, err := time.ParseInLocation(dateLayout, string(d), location())
	if err != nil {
		return time.Time{}
	}
	return t
}

func FromTime(t time.Time) Day {
	return Day(t.In(location()).Format(dateLayout))
}

func Today(now time.Time) Day {
	return FromTime(now)
}

func Tomorrow(now time.Time) Day {
	return FromTime(now.In(location()).AddDate(0, 0, 1))
}

// AfterCutoff reports whether tomorrow's prices should be published.
func AfterCutoff(now time.Time) bool {
	return now.In(location()).Hour() >= PublicationHour
}

// UntilCutoff returns the time remaining to today's publication cutoff,
// zero when the cutoff has passed.
func UntilCutoff(now time.Time) time.Duration {
	loc := location()
	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), PublicationHour, 0, 0, 0, loc)
	if !local.Before(target) {
		return 0
	}
	return target.Sub(local)
}

// UntilMidnight returns the time remaining to the next local midnight,
// the moment today's cache rolls over.
func UntilMidnight(now time.Time) time.Duration {
	loc := location()
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return next.Sub(local)
}
