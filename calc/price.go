// Package calc holds the pure price conversion math: unit scaling and the
// consumer tariff formula. No state, absent inputs propagate as absent.
package calc

import (
	"time"

	"github.com/angas/dayahead-go/convert"
	"github.com/angas/dayahead-go/prices"
	"github.com/angas/dayahead-go/types/maybe"
)

func MWhToKWh(pricePerMWh maybe.Maybe[float64]) maybe.Maybe[float64] {
	return maybe.Map(pricePerMWh, func(v float64) float64 { return v / 1000.0 })
}

// ConsumerPriceKWh applies the consumer tariff to a market price per kWh:
// (market + energyTax + supplierMarkup) * (1 + vat), all rates per kWh.
func ConsumerPriceKWh(marketPriceKWh maybe.Maybe[float64], energyTax, supplierMarkup, vat float64) maybe.Maybe[float64] {
	return maybe.Map(marketPriceKWh, func(v float64) float64 {
		return (v + energyTax + supplierMarkup) * (1 + vat)
	})
}

// ConsumerPriceMWh is the same tariff in MWh terms. Tax and markup are
// configured per kWh and scale by 1000; VAT is a dimensionless fraction.
func ConsumerPriceMWh(marketPriceMWh maybe.Maybe[float64], energyTax, supplierMarkup, vat float64) maybe.Maybe[float64] {
	return maybe.Map(marketPriceMWh, func(v float64) float64 {
		return (v + energyTax*1000 + supplierMarkup*1000) * (1 + vat)
	})
}

// EnrichOptions selects which price variants an enriched row carries.
// EnergyTax and SupplierMarkup are per kWh, VAT a fraction (0.21 = 21%).
type EnrichOptions struct {
	EnableKWh       bool
	ConsumerEnabled bool
	EnergyTax       float64
	SupplierMarkup  float64
	VAT             float64
}

// EnrichedRow keeps a uniform shape: disabled variants are explicitly
// absent, never omitted.
type EnrichedRow struct {
	Start       time.Time            `json:"startTime"`
	End         time.Time            `json:"endTime"`
	MarketMWh   maybe.Maybe[float64] `json:"market_mwh"`
	MarketKWh   maybe.Maybe[float64] `json:"market_kwh"`
	ConsumerMWh maybe.Maybe[float64] `json:"consumer_mwh"`
	ConsumerKWh maybe.Maybe[float64] `json:"consumer_kwh"`
}

// EnrichRows expands raw MWh rows with the enabled unit and tier variants.
// MWh-denominated outputs round to 5 decimals, kWh-denominated to 6.
func EnrichRows(rows []prices.Row, opts EnrichOptions) []EnrichedRow {
	result := make([]EnrichedRow, 0, len(rows))
	for _, row := range rows {
		enriched := EnrichedRow{
			Start:       row.Start,
			End:         row.End,
			MarketMWh:   maybe.Map(row.Value, convert.FiveDecimals),
			MarketKWh:   maybe.None[float64](),
			ConsumerMWh: maybe.None[float64](),
			ConsumerKWh: maybe.None[float64](),
		}

		if opts.EnableKWh {
			enriched.MarketKWh = maybe.Map(MWhToKWh(row.Value), convert.SixDecimals)
		}

		if opts.ConsumerEnabled {
			enriched.ConsumerMWh = maybe.Map(
				ConsumerPriceMWh(row.Value, opts.EnergyTax, opts.SupplierMarkup, opts.VAT),
				convert.FiveDecimals)
			enriched.ConsumerKWh = maybe.Map(
				ConsumerPriceKWh(MWhToKWh(row.Value), opts.EnergyTax, opts.SupplierMarkup, opts.VAT),
				convert.SixDecimals)
		}

		result = append(result, enriched)
	}
	return result
}
