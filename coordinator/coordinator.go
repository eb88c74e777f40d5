// Package coordinator owns the per-area price cache and the refresh loop
// that keeps it current against the day-ahead publication schedule.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/marketday"
	"github.com/angas/dayahead-go/nordpool"
	"github.com/angas/dayahead-go/prices"
)

type Slot string

const (
	SlotToday    Slot = "today"
	SlotTomorrow Slot = "tomorrow"
)

// ErrNotReady is returned by Refresh as long as no fetch has ever
// succeeded. Once a single record is cached the coordinator keeps serving
// stale data through later fetch failures instead of failing.
var ErrNotReady = errors.New("no price data fetched yet")

const (
	fastInterval         = time.Minute
	maxInterval          = time.Hour
	fetchTimeout         = 30 * time.Second
	maxConcurrentFetches = 4
)

type Fetcher interface {
	FetchDayAhead(ctx context.Context, area string, day marketday.Day, currency string) (*nordpool.DayAheadPayload, error)
}

// AuditLog receives one row per fetch attempt. May be nil.
type AuditLog interface {
	SaveFetchLog(ctx context.Context, r database.FetchLogRow) error
}

// RefreshSummary describes one accepted record, published on C after every
// cache update.
type RefreshSummary struct {
	Area         string        `json:"area"`
	Slot         Slot          `json:"slot"`
	DeliveryDate marketday.Day `json:"delivery_date"`
	Status       prices.Status `json:"status"`
	Rows         int           `json:"rows"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

type Coordinator struct {
	logger  *slog.Logger
	fetcher Fetcher
	audit   AuditLog
	now     func() time.Time

	mu          sync.RWMutex
	cfg         *config.AppConfig
	cache       map[string]map[Slot]*prices.Record
	lastFetch   map[string]map[Slot]time.Time
	fetchedOnce bool
	interval    time.Duration

	// C carries a summary for every accepted record. Sends are
	// non-blocking, a slow consumer drops summaries rather than stalling
	// the refresh cycle.
	C chan RefreshSummary
}

func New(logger *slog.Logger, fetcher Fetcher, audit AuditLog, cfg *config.AppConfig) *Coordinator {
	c := &Coordinator{
		logger:    logger.With(slog.String("module", "coordinator")),
		fetcher:   fetcher,
		audit:     audit,
		now:       time.Now,
		cfg:       cfg,
		cache:     make(map[string]map[Slot]*prices.Record),
		lastFetch: make(map[string]map[Slot]time.Time),
		interval:  fastInterval,
		C:         make(chan RefreshSummary, 16),
	}
	for _, area := range cfg.Market.Areas {
		c.cache[area] = make(map[Slot]*prices.Record)
		c.lastFetch[area] = make(map[Slot]time.Time)
	}
	return c
}

// SetClock replaces the wall clock, for tests.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// UpdateConfig swaps in a reloaded configuration. New areas are picked up
// on the next refresh cycle, removed areas stop being fetched but their
// cached records are kept until rollover.
func (c *Coordinator) UpdateConfig(cfg *config.AppConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

type fetchJob struct {
	area string
	slot Slot
	day  marketday.Day
}

// Refresh runs one cycle: figure out which (area, slot) pairs are missing
// or stale, fetch them concurrently, then recompute the poll interval.
// Returns ErrNotReady until the first fetch ever succeeds.
func (c *Coordinator) Refresh(ctx context.Context) error {
	now := c.now()
	today := marketday.Today(now)
	tomorrow := marketday.Tomorrow(now)
	afterCutoff := marketday.AfterCutoff(now)

	c.mu.Lock()
	currency := c.cfg.Market.GetCurrency()
	var jobs []fetchJob
	for _, area := range c.cfg.Market.Areas {
		if c.cache[area] == nil {
			c.cache[area] = make(map[Slot]*prices.Record)
			c.lastFetch[area] = make(map[Slot]time.Time)
		}

		cur := c.cache[area][SlotToday]
		if cur == nil || cur.DeliveryDate != today {
			if cur != nil {
				// Day rolled over, yesterday's "tomorrow" is stale too.
				delete(c.cache[area], SlotTomorrow)
			}
			jobs = append(jobs, fetchJob{area, SlotToday, today})
		}

		if afterCutoff {
			next := c.cache[area][SlotTomorrow]
			if next == nil || next.DeliveryDate != tomorrow || !next.IsFinal() {
				jobs = append(jobs, fetchJob{area, SlotTomorrow, tomorrow})
			}
		}
	}
	c.mu.Unlock()

	if len(jobs) > 0 {
		var g errgroup.Group
		g.SetLimit(maxConcurrentFetches)
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				// Fetch failures are contained per slot, one area's
				// trouble never aborts its siblings.
				c.fetch(ctx, job, currency)
				return nil
			})
		}
		g.Wait()
	}

	c.mu.Lock()
	c.interval = c.nextIntervalLocked(c.now())
	ready := c.fetchedOnce
	interval := c.interval
	c.mu.Unlock()

	c.logger.Debug("refresh cycle done",
		slog.Int("fetches", len(jobs)),
		slog.Duration("next_interval", interval))

	if !ready {
		return ErrNotReady
	}
	return nil
}

func (c *Coordinator) fetch(ctx context.Context, job fetchJob, currency string) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	payload, err := c.fetcher.FetchDayAhead(ctx, job.area, job.day, currency)
	switch {
	case errors.Is(err, nordpool.ErrNotPublished):
		c.logger.Debug("prices not published yet",
			slog.String("area", job.area),
			slog.String("slot", string(job.slot)),
			slog.String("date", job.day.String()))
		c.saveAudit(job, database.FetchOutcomeNotPublished, "", 0, "")
		return
	case err != nil:
		c.logger.Warn("price fetch failed",
			slog.String("area", job.area),
			slog.String("slot", string(job.slot)),
			slog.String("date", job.day.String()),
			slog.Any("error", err))
		c.saveAudit(job, database.FetchOutcomeError, "", 0, err.Error())
		return
	}

	record := prices.NewRecord(payload, job.area)
	if !record.AreaAvailable {
		c.logger.Warn("response carries no prices for area, discarding",
			slog.String("area", job.area),
			slog.String("date", job.day.String()))
		c.saveAudit(job, database.FetchOutcomeUnavailable, string(record.Status), 0, "")
		return
	}

	fetchedAt := c.now()
	c.mu.Lock()
	c.cache[job.area][job.slot] = record
	c.lastFetch[job.area][job.slot] = fetchedAt
	c.fetchedOnce = true
	c.mu.Unlock()

	c.logger.Info("price record updated",
		slog.String("area", job.area),
		slog.String("slot", string(job.slot)),
		slog.String("date", record.DeliveryDate.String()),
		slog.String("status", string(record.Status)),
		slog.Int("quarters", len(record.Quarters)))
	c.saveAudit(job, database.FetchOutcomeUpdated, string(record.Status), len(record.Quarters), "")

	summary := RefreshSummary{
		Area:         job.area,
		Slot:         job.slot,
		DeliveryDate: record.DeliveryDate,
		Status:       record.Status,
		Rows:         len(record.Quarters),
		FetchedAt:    fetchedAt,
	}
	select {
	case c.C <- summary:
	default:
	}
}

func (c *Coordinator) saveAudit(job fetchJob, outcome, status string, rows int, detail string) {
	if c.audit == nil {
		return
	}
	err := c.audit.SaveFetchLog(context.Background(), database.FetchLogRow{
		FetchedAt:    c.now(),
		Area:         job.area,
		DeliveryDate: job.day.String(),
		Slot:         string(job.slot),
		Outcome:      outcome,
		Status:       status,
		RowCount:     rows,
		Detail:       detail,
	})
	if err != nil {
		c.logger.Warn("failed to save fetch audit entry", slog.Any("error", err))
	}
}

// nextIntervalLocked picks the longest poll interval that still wakes up in
// time for the next publication event. Callers hold c.mu.
func (c *Coordinator) nextIntervalLocked(now time.Time) time.Duration {
	today := marketday.Today(now)
	tomorrow := marketday.Tomorrow(now)

	for _, area := range c.cfg.Market.Areas {
		cur := c.cache[area][SlotToday]
		if cur == nil || cur.DeliveryDate != today {
			return fastInterval
		}
	}

	if !marketday.AfterCutoff(now) {
		interval := min(maxInterval, marketday.UntilCutoff(now), marketday.UntilMidnight(now))
		return max(interval, fastInterval)
	}

	for _, area := range c.cfg.Market.Areas {
		next := c.cache[area][SlotTomorrow]
		if next == nil || next.DeliveryDate != tomorrow || !next.IsFinal() {
			return fastInterval
		}
	}

	return max(min(maxInterval, marketday.UntilMidnight(now)), fastInterval)
}

// Run refreshes on a timer until ctx is cancelled. The cadence follows the
// interval recomputed after every cycle.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("refresh cycle failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.Interval()):
		}
	}
}

// Get returns the cached record for an area and slot, nil when absent.
func (c *Coordinator) Get(area string, slot Slot) *prices.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[area][slot]
}

func (c *Coordinator) Today(area string) *prices.Record {
	return c.Get(area, SlotToday)
}

func (c *Coordinator) Tomorrow(area string) *prices.Record {
	return c.Get(area, SlotTomorrow)
}

// LastFetch returns when a slot was last successfully updated.
func (c *Coordinator) LastFetch(area string, slot Slot) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.lastFetch[area][slot]
	return t, ok && !t.IsZero()
}

func (c *Coordinator) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

func (c *Coordinator) Areas() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	areas := make([]string, len(c.cfg.Market.Areas))
	copy(areas, c.cfg.Market.Areas)
	return areas
}

func (c *Coordinator) Currency() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Market.GetCurrency()
}

// Settings returns the resolved consumer pricing configuration for an area.
func (c *Coordinator) Settings(area string) config.AreaSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.AreaSettings(area)
}

// HasArea reports whether the coordinator tracks the given area.
func (c *Coordinator) HasArea(area string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.cfg.Market.Areas {
		if a == area {
			return true
		}
	}
	return false
}

func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedOnce
}
