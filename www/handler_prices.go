package www

import (
	"log/slog"
	"net/http"

	"github.com/angas/dayahead-go/calc"
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/prices"
)

type curveResponse struct {
	Area         string             `json:"area"`
	Day          coordinator.Slot   `json:"day"`
	DeliveryDate string             `json:"delivery_date"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	Stats        prices.Stats       `json:"stats"`
	Quarters     []calc.EnrichedRow `json:"quarters"`
	Hours        []calc.EnrichedRow `json:"hours,omitempty"`
}

// NewPricesHandler serves the enriched curve for one cached area and day:
// GET /api/prices?area=NL&day=today
func NewPricesHandler(logger *slog.Logger, coord *coordinator.Coordinator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(logger, w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		area := r.URL.Query().Get("area")
		if area == "" {
			writeError(logger, w, http.StatusBadRequest, "area is required")
			return
		}
		day := coordinator.Slot(strOrDefault(r.URL, "day", string(coordinator.SlotToday)))
		if day != coordinator.SlotToday && day != coordinator.SlotTomorrow {
			writeError(logger, w, http.StatusBadRequest, "day must be today or tomorrow")
			return
		}
		if !coord.HasArea(area) {
			writeError(logger, w, http.StatusBadRequest, "area is not configured")
			return
		}

		record := coord.Get(area, day)
		if record == nil {
			writeError(logger, w, http.StatusNotFound, "no prices cached for this day")
			return
		}

		settings := coord.Settings(area)
		opts := calc.EnrichOptions{
			EnableKWh:       settings.EnableKWh,
			ConsumerEnabled: settings.ConsumerPriceEnabled,
			EnergyTax:       settings.EnergyTax,
			SupplierMarkup:  settings.SupplierMarkup,
			VAT:             settings.VAT,
		}

		response := curveResponse{
			Area:         area,
			Day:          day,
			DeliveryDate: record.DeliveryDate.String(),
			Currency:     record.Currency,
			Status:       string(record.Status),
			Stats:        record.Stats(prices.ResolutionQuarter),
			Quarters:     calc.EnrichRows(record.Quarters, opts),
		}
		if settings.EnableHourly {
			response.Hours = calc.EnrichRows(record.Hours, opts)
		}

		if err := writeJSON(w, http.StatusOK, response); err != nil {
			logger.Error("failed to write prices response", slog.Any("error", err))
		}
	})
}
