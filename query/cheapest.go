package query

import (
	"github.com/angas/dayahead-go/convert"
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
	"github.com/angas/dayahead-go/types/maybe"
)

type CheapestBlocksParams struct {
	Area       string            `json:"area"`
	Day        coordinator.Slot  `json:"day"`
	Resolution prices.Resolution `json:"resolution"`
	Blocks     int               `json:"blocks"`
	Contiguous bool              `json:"contiguous"`
	Tier       Tier              `json:"tier"`
}

type CheapestBlocksResult struct {
	Area            string               `json:"area"`
	Day             coordinator.Slot     `json:"day"`
	DeliveryDate    string               `json:"delivery_date"`
	Resolution      prices.Resolution    `json:"resolution"`
	Contiguous      bool                 `json:"contiguous"`
	Rows            []RowView            `json:"rows"`
	AveragePriceKWh maybe.Maybe[float64] `json:"average_price_kwh"`
}

// CheapestBlocks finds the n cheapest delivery intervals of a cached day,
// contiguous or independent.
func (s *Service) CheapestBlocks(p CheapestBlocksParams) (*CheapestBlocksResult, error) {
	if p.Tier == "" {
		p.Tier = TierMarket
	}
	if err := validateResolution(p.Resolution); err != nil {
		return nil, err
	}
	if err := validateBlocks(p.Blocks, p.Resolution); err != nil {
		return nil, err
	}

	record, c, err := s.record(p.Area, p.Day)
	if err != nil {
		return nil, err
	}
	settings := c.Settings(p.Area)
	if err := validateTier(p.Tier, p.Area, settings); err != nil {
		return nil, err
	}

	rows := record.CheapestBlocks(p.Blocks, p.Resolution, p.Contiguous)
	if len(rows) == 0 {
		return nil, validationErrorf("area %q has fewer than %d priced %s rows for %s",
			p.Area, p.Blocks, p.Resolution, p.Day)
	}

	views := rowViews(rows, p.Tier, settings)
	return &CheapestBlocksResult{
		Area:            p.Area,
		Day:             p.Day,
		DeliveryDate:    record.DeliveryDate.String(),
		Resolution:      p.Resolution,
		Contiguous:      p.Contiguous,
		Rows:            views,
		AveragePriceKWh: averagePriceKWh(views),
	}, nil
}

func averagePriceKWh(views []RowView) maybe.Maybe[float64] {
	sum, count := 0.0, 0
	for _, v := range views {
		if v.PriceKWh.IsValid() {
			sum += v.PriceKWh.Value()
			count++
		}
	}
	if count == 0 {
		return maybe.None[float64]()
	}
	return maybe.Some(convert.SixDecimals(sum / float64(count)))
}
