package coordinator

import (
	"time"

	"github.com/angas/dayahead-go/config"
)

type SlotDiagnostics struct {
	Cached        bool       `json:"cached"`
	DeliveryDate  string     `json:"delivery_date,omitempty"`
	Status        string     `json:"status,omitempty"`
	AreaAvailable bool       `json:"area_available"`
	Quarters      int        `json:"quarters"`
	Hours         int        `json:"hours"`
	LastFetch     *time.Time `json:"last_fetch,omitempty"`
}

type AreaDiagnostics struct {
	Today    SlotDiagnostics     `json:"today"`
	Tomorrow SlotDiagnostics     `json:"tomorrow"`
	Settings config.AreaSettings `json:"settings"`
}

type Diagnostics struct {
	Currency    string                     `json:"currency"`
	Ready       bool                       `json:"ready"`
	Interval    string                     `json:"poll_interval"`
	Areas       map[string]AreaDiagnostics `json:"areas"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Diagnostics returns a read-only snapshot of the cache state, for the
// support endpoint. It never exposes the records themselves.
func (c *Coordinator) Diagnostics() Diagnostics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := Diagnostics{
		Currency:    c.cfg.Market.GetCurrency(),
		Ready:       c.fetchedOnce,
		Interval:    c.interval.String(),
		Areas:       make(map[string]AreaDiagnostics, len(c.cfg.Market.Areas)),
		GeneratedAt: c.now(),
	}

	for _, area := range c.cfg.Market.Areas {
		d.Areas[area] = AreaDiagnostics{
			Today:    c.slotDiagnosticsLocked(area, SlotToday),
			Tomorrow: c.slotDiagnosticsLocked(area, SlotTomorrow),
			Settings: c.cfg.AreaSettings(area),
		}
	}

	return d
}

func (c *Coordinator) slotDiagnosticsLocked(area string, slot Slot) SlotDiagnostics {
	record := c.cache[area][slot]
	if record == nil {
		return SlotDiagnostics{}
	}

	sd := SlotDiagnostics{
		Cached:        true,
		DeliveryDate:  record.DeliveryDate.String(),
		Status:        string(record.Status),
		AreaAvailable: record.AreaAvailable,
		Quarters:      len(record.Quarters),
		Hours:         len(record.Hours),
	}
	if t, ok := c.lastFetch[area][slot]; ok && !t.IsZero() {
		sd.LastFetch = &t
	}
	return sd
}
