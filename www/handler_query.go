package www

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angas/dayahead-go/query"
)

// newQueryHandler wraps one query operation as a POST endpoint: the body is
// the operation's parameter set, validation failures map to 400.
func newQueryHandler[P any, R any](logger *slog.Logger, op func(P) (R, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(logger, w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var params P
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(logger, w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		result, err := op(params)
		if err != nil {
			if query.IsValidationError(err) {
				writeError(logger, w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("query failed", slog.Any("error", err))
			writeError(logger, w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := writeJSON(w, http.StatusOK, result); err != nil {
			logger.Error("failed to write query response", slog.Any("error", err))
		}
	})
}
