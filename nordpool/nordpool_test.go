package nordpool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angas/dayahead-go/marketday"
)

const samplePayload = `{
	"deliveryDateCET": "2026-02-18",
	"currency": "EUR",
	"areaStates": [{"state": "Final", "areas": ["NL"]}],
	"multiAreaEntries": [
		{
			"deliveryStart": "2026-02-17T23:00:00Z",
			"deliveryEnd": "2026-02-17T23:15:00Z",
			"entryPerArea": {"NL": 91.81}
		},
		{
			"deliveryStart": "2026-02-17T23:15:00Z",
			"deliveryEnd": "2026-02-17T23:30:00Z",
			"entryPerArea": {}
		}
	],
	"blockPriceAggregates": [
		{
			"blockName": "Off-peak 1",
			"deliveryStart": "2026-02-17T23:00:00Z",
			"deliveryEnd": "2026-02-18T07:00:00Z",
			"averagePricePerArea": {"NL": {"average": 99.5, "min": 82.47, "max": 188.67}}
		}
	]
}`

func TestFetchDayAhead(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(samplePayload)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL)
	payload, err := c.FetchDayAhead(context.Background(), "NL", marketday.Day("2026-02-18"), "EUR")
	if err != nil {
		t.Fatalf("FetchDayAhead() unexpected error: %v", err)
	}

	if payload.DeliveryDateCET != "2026-02-18" {
		t.Errorf("expected delivery date 2026-02-18, got %s", payload.DeliveryDateCET)
	}
	if len(payload.MultiAreaEntries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(payload.MultiAreaEntries))
	}
	if price, ok := payload.MultiAreaEntries[0].EntryPerArea["NL"]; !ok || price != 91.81 {
		t.Errorf("expected NL price 91.81, got %v (present: %v)", price, ok)
	}
	if _, ok := payload.MultiAreaEntries[1].EntryPerArea["NL"]; ok {
		t.Errorf("expected second entry to have no NL price")
	}
	if len(payload.BlockPriceAggregates) != 1 || payload.BlockPriceAggregates[0].BlockName != "Off-peak 1" {
		t.Errorf("unexpected block aggregates: %+v", payload.BlockPriceAggregates)
	}

	for _, part := range []string{"date=2026-02-18", "deliveryArea=NL", "currency=EUR", "market=DayAhead"} {
		if !containsParam(gotQuery, part) {
			t.Errorf("expected query to contain %q, got %q", part, gotQuery)
		}
	}
}

func TestFetchDayAheadNotPublished(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "no content", status: http.StatusNoContent},
		{name: "not found", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewWithBaseURL(srv.URL)
			_, err := c.FetchDayAhead(context.Background(), "NL", marketday.Day("2026-02-19"), "EUR")
			if !errors.Is(err, ErrNotPublished) {
				t.Errorf("expected ErrNotPublished, got %v", err)
			}
		})
	}
}

func TestFetchDayAheadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL)
	_, err := c.FetchDayAhead(context.Background(), "NL", marketday.Day("2026-02-18"), "EUR")
	if err == nil {
		t.Fatalf("expected error for status 500")
	}
	if errors.Is(err, ErrNotPublished) {
		t.Errorf("500 must not be reported as not-published")
	}
}

func containsParam(query, param string) bool {
	for _, p := range splitQuery(query) {
		if p == param {
			return true
		}
	}
	return false
}

func splitQuery(query string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(query); i++ {
		if i == len(query) || query[i] == '&' {
			parts = append(parts, query[start:i])
			start = i + 1
		}
	}
	return parts
}
