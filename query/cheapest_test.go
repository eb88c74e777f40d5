package query

import (
	"testing"

	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
)

func TestCheapestBlocksIndependent(t *testing.T) {
	svc := newFixture(t, fixtureOpts{
		today: []*float64{fptr(50), fptr(20), fptr(80), fptr(10)},
	})

	result, err := svc.CheapestBlocks(CheapestBlocksParams{
		Area:       "NL",
		Day:        coordinator.SlotToday,
		Resolution: prices.ResolutionQuarter,
		Blocks:     2,
	})
	if err != nil {
		t.Fatalf("CheapestBlocks() unexpected error: %v", err)
	}

	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	// Chronological, not cheapest-first.
	if !result.Rows[0].Start.Before(result.Rows[1].Start) {
		t.Errorf("rows not sorted by start time")
	}
	if result.Rows[0].MarketMWh.Value() != 20 || result.Rows[1].MarketMWh.Value() != 10 {
		t.Errorf("unexpected picks: %v and %v", result.Rows[0].MarketMWh, result.Rows[1].MarketMWh)
	}
	if result.Rows[0].PriceKWh.Value() != 0.02 {
		t.Errorf("expected market tier price 0.02/kWh, got %v", result.Rows[0].PriceKWh)
	}
	if result.AveragePriceKWh.Value() != 0.015 {
		t.Errorf("expected average 0.015/kWh, got %v", result.AveragePriceKWh)
	}
	if result.DeliveryDate != "2025-06-10" {
		t.Errorf("unexpected delivery date %s", result.DeliveryDate)
	}
}

func TestCheapestBlocksConsumerTier(t *testing.T) {
	svc := newFixture(t, fixtureOpts{
		today: []*float64{fptr(50), fptr(60)},
	})

	result, err := svc.CheapestBlocks(CheapestBlocksParams{
		Area:       "NL",
		Day:        coordinator.SlotToday,
		Resolution: prices.ResolutionQuarter,
		Blocks:     1,
		Tier:       TierConsumer,
	})
	if err != nil {
		t.Fatalf("CheapestBlocks() unexpected error: %v", err)
	}

	// (0.05 + 0.09161 + 0.0165289256198347) * 1.21, rounded to 6 decimals.
	if got := result.Rows[0].PriceKWh.Value(); got != 0.191348 {
		t.Errorf("expected consumer price 0.191348/kWh, got %v", got)
	}
}

func TestCheapestBlocksContiguousSkipsNothing(t *testing.T) {
	svc := newFixture(t, fixtureOpts{
		today: []*float64{fptr(30), fptr(10), fptr(12), fptr(40)},
	})

	result, err := svc.CheapestBlocks(CheapestBlocksParams{
		Area:       "NL",
		Day:        coordinator.SlotToday,
		Resolution: prices.ResolutionQuarter,
		Blocks:     2,
		Contiguous: true,
	})
	if err != nil {
		t.Fatalf("CheapestBlocks() unexpected error: %v", err)
	}

	if result.Rows[0].MarketMWh.Value() != 10 || result.Rows[1].MarketMWh.Value() != 12 {
		t.Errorf("expected window [10 12], got %v %v",
			result.Rows[0].MarketMWh, result.Rows[1].MarketMWh)
	}
	if !result.Contiguous {
		t.Errorf("expected contiguous flag echoed")
	}
}
