package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/angas/dayahead-go/marketday"
	"github.com/angas/dayahead-go/nordpool"
	"github.com/angas/dayahead-go/prices"
)

// One-shot probe against the day-ahead API, handy for checking what the
// portal currently serves for an area without starting the whole service.
func main() {
	area := flag.String("area", "NL", "delivery area")
	currency := flag.String("currency", "EUR", "price currency")
	date := flag.String("date", "", "delivery date (YYYY-MM-DD), default today")
	flag.Parse()

	day := marketday.Today(time.Now())
	if *date != "" {
		day = marketday.Day(*date)
	}

	client := nordpool.New()
	payload, err := client.FetchDayAhead(context.Background(), *area, day, *currency)
	if err != nil {
		panic(err)
	}

	record := prices.NewRecord(payload, *area)
	fmt.Printf("Area: %s, Date: %s, Status: %s, Available: %v\n",
		record.Area, record.DeliveryDate, record.Status, record.AreaAvailable)

	for _, row := range record.Quarters {
		if row.Value.IsValid() {
			fmt.Printf("%s - %s  %10.5f %s/MWh\n",
				row.Start.Format("15:04"), row.End.Format("15:04"), row.Value.Value(), record.Currency)
		} else {
			fmt.Printf("%s - %s  %10s\n", row.Start.Format("15:04"), row.End.Format("15:04"), "-")
		}
	}

	stats := record.Stats(prices.ResolutionQuarter)
	fmt.Printf("Min: %v, Max: %v, Avg: %v (%d priced quarters)\n",
		stats.Min.ValueOrDefault(0), stats.Max.ValueOrDefault(0), stats.Average.ValueOrDefault(0), stats.Count)
}
