package nordpool

import "time"

const API_URL = "https://dataportal-api.nordpoolgroup.com/api/DayAheadPrices"

const Market = "DayAhead"

// DayAheadPayload is the data portal response for one delivery day.
type DayAheadPayload struct {
	DeliveryDateCET      string                `json:"deliveryDateCET"`
	Currency             string                `json:"currency"`
	AreaStates           []AreaState           `json:"areaStates"`
	MultiAreaEntries     []MultiAreaEntry      `json:"multiAreaEntries"`
	BlockPriceAggregates []BlockPriceAggregate `json:"blockPriceAggregates"`
}

// AreaState carries the publication state ("Preliminary" or "Final") for a
// set of delivery areas.
type AreaState struct {
	State string   `json:"state"`
	Areas []string `json:"areas"`
}

// MultiAreaEntry is one fine-grained delivery interval. Areas without a
// price for the interval are absent from EntryPerArea.
type MultiAreaEntry struct {
	DeliveryStart time.Time          `json:"deliveryStart"`
	DeliveryEnd   time.Time          `json:"deliveryEnd"`
	EntryPerArea  map[string]float64 `json:"entryPerArea"`
}

type BlockPriceAggregate struct {
	BlockName           string                  `json:"blockName"`
	DeliveryStart       time.Time               `json:"deliveryStart"`
	DeliveryEnd         time.Time               `json:"deliveryEnd"`
	AveragePricePerArea map[string]BlockAverage `json:"averagePricePerArea"`
}

type BlockAverage struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}
