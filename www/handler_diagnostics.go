package www

import (
	"log/slog"
	"net/http"

	"github.com/angas/dayahead-go/coordinator"
)

// NewDiagnosticsHandler dumps the coordinator's internal state for support
// purposes. Read-only.
func NewDiagnosticsHandler(logger *slog.Logger, coord *coordinator.Coordinator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(logger, w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := writeJSON(w, http.StatusOK, coord.Diagnostics()); err != nil {
			logger.Error("failed to write diagnostics response", slog.Any("error", err))
		}
	})
}
