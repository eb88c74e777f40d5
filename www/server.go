package www

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/query"
)

type Server struct {
	logger *slog.Logger
	config config.AppConfigApi
	srv    *http.Server
	hub    *Hub
}

func StartServer(db *database.Database, coord *coordinator.Coordinator, svc *query.Service, cnfg config.AppConfigApi) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger: logger,
		config: cnfg,
		hub:    NewHub(logger),
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()

	mux.Handle("/api/prices", logReqMW(NewPricesHandler(
		logger.With(slog.String("handler", "prices")), coord)))

	mux.Handle("/api/query/cheapest-blocks", logReqMW(newQueryHandler(
		logger.With(slog.String("handler", "cheapest_blocks")), svc.CheapestBlocks)))

	mux.Handle("/api/query/forecast-device-cost", logReqMW(newQueryHandler(
		logger.With(slog.String("handler", "forecast_device_cost")), svc.ForecastDeviceCost)))

	mux.Handle("/api/query/best-next-window", logReqMW(newQueryHandler(
		logger.With(slog.String("handler", "best_next_window")), svc.BestNextWindow)))

	mux.Handle("/api/query/export-strategy", logReqMW(newQueryHandler(
		logger.With(slog.String("handler", "export_strategy")), svc.ExportStrategy)))

	mux.Handle("/api/query/price-alerts", logReqMW(newQueryHandler(
		logger.With(slog.String("handler", "price_alerts")), svc.PriceAlerts)))

	mux.Handle("/api/diagnostics", logReqMW(NewDiagnosticsHandler(
		logger.With(slog.String("handler", "diagnostics")), coord)))

	mux.Handle("/api/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")), db)))

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
	})

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cnfg.Address, cnfg.Port),
		Handler: mux,
	}

	return s
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "addr", s.srv.Addr)

	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- s.srv.ListenAndServe()
	}()

	for {
		select {
		case err := <-srvErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("server error", slog.Any("error", err))
			}

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := s.srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return
		}
	}
}

// BroadcastSummary pushes one refresh summary to connected websocket
// clients.
func (s *Server) BroadcastSummary(summary coordinator.RefreshSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		s.logger.Error("failed to marshal refresh summary", slog.Any("error", err))
		return
	}
	s.hub.Broadcast <- data
}
