package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/logging"
)

type logEntryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs,omitempty"`
}

// NewLogHandler serves recent application log entries:
// GET /api/log?page=1&page_size=50&min_level=WARN
func NewLogHandler(logger *slog.Logger, db *database.Database) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(logger, w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		minLevel := strOrDefault(r.URL, "min_level", "INFO")
		page := intOrDefault(r.URL, "page", 1)
		pageSize := intOrDefault(r.URL, "page_size", 50)

		entries, err := db.GetLogEntries(r.Context(), logging.LevelFromString(&minLevel), page, pageSize)
		if err != nil {
			logger.Error("failed to fetch log entries", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal error")
			return
		}

		response := make([]logEntryResponse, 0, len(entries))
		for _, e := range entries {
			response = append(response, logEntryResponse{
				Timestamp: e.Timestamp,
				Level:     slog.Level(e.Level).String(),
				Message:   e.Message,
				Attrs:     e.Attrs,
			})
		}

		if err := writeJSON(w, http.StatusOK, response); err != nil {
			logger.Error("failed to write log response", slog.Any("error", err))
		}
	})
}
