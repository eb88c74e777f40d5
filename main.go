package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/coordinator"
	"github.com/angas/dayahead-go/database"
	"github.com/angas/dayahead-go/logging"
	"github.com/angas/dayahead-go/marketday"
	"github.com/angas/dayahead-go/mqtt"
	"github.com/angas/dayahead-go/nordpool"
	"github.com/angas/dayahead-go/query"
	"github.com/angas/dayahead-go/task"
	"github.com/angas/dayahead-go/www"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := marketday.SetTimezone(cnfg.Market.GetTimezone()); err != nil {
		panic(fmt.Sprintf("failed to set market timezone: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("dayahead is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	coord := coordinator.New(logger, nordpool.New(), db, cnfg)

	config.Watch(logger, func(reloaded *config.AppConfig) {
		if err := marketday.SetTimezone(reloaded.Market.GetTimezone()); err != nil {
			logger.Error("reloaded config has a bad timezone, keeping previous", slog.Any("error", err))
			return
		}
		coord.UpdateConfig(reloaded)
	})

	// The first cycle may legitimately find nothing published yet (fresh
	// start right before midnight); keep polling instead of giving up.
	if err := coord.Refresh(ctx); err != nil {
		if errors.Is(err, coordinator.ErrNotReady) {
			logger.Warn("no prices available yet, will keep polling")
		} else {
			panic(fmt.Sprintf("initial price refresh failed: %v", err))
		}
	}
	go coord.Run(ctx)

	tasks := task.NewTasks(db, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		tasks.Run()
		defer tasks.Stop()
	}

	var publisher *mqtt.Publisher
	if cnfg.Mqtt.Enabled {
		publisher = mqtt.New(cnfg.Mqtt, coord)
		if err := publisher.Connect(); err != nil {
			panic(fmt.Sprintf("mqtt connection error: %v", err))
		}
		defer publisher.Disconnect()
	}

	svc := query.New(logger, query.NewDirectory(coord))
	server := www.StartServer(db, coord, svc, cnfg.Api)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("main context done")
				return
			case sig := <-sigCh:
				logger.Info("received signal", slog.Any("signal", sig))
				cancel()
			case summary := <-coord.C:
				server.BroadcastSummary(summary)
				if publisher != nil {
					publisher.PublishRefresh(summary)
				}
			}
		}
	}()

	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
