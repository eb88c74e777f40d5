package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func strOrDefault(u *url.URL, key string, defaultValue string) string {
	if v := u.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(logger *slog.Logger, w http.ResponseWriter, status int, msg string) {
	if err := writeJSON(w, status, errorResponse{Error: msg}); err != nil {
		logger.Error("failed to write error response", slog.Any("error", err))
	}
}
