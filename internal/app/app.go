// Package app wires the server together: config, logging, the entity tree,
// the avatar registry, the collision system, the tick loop, and the HTTP
// surface.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/JulianGro/athena-entity-server/internal/avatars"
	"github.com/JulianGro/athena-entity-server/internal/collision"
	"github.com/JulianGro/athena-entity-server/internal/config"
	"github.com/JulianGro/athena-entity-server/internal/materials"
	"github.com/JulianGro/athena-entity-server/internal/net/ws"
	"github.com/JulianGro/athena-entity-server/internal/sim"
	"github.com/JulianGro/athena-entity-server/internal/telemetry"
	"github.com/JulianGro/athena-entity-server/internal/tree"
	"github.com/JulianGro/athena-entity-server/logging"
	loggingsinks "github.com/JulianGro/athena-entity-server/logging/sinks"
)

// Run starts the server and blocks until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	telemetryLogger := telemetry.WrapLogger(log.Default())

	var namedSinks []logging.NamedSink
	if cfg.Logging.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: loggingsinks.NewConsoleSink(os.Stdout, cfg.Logging.Console),
		})
	}
	if cfg.Logging.HasSink("json") && cfg.Logging.JSON.FilePath != "" {
		file, err := os.OpenFile(cfg.Logging.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open json log: %w", err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingsinks.NewJSON(file, cfg.Logging.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(nil, cfg.Logging, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("close logging router: %v", cerr)
		}
	}()

	counters := logging.NewMetrics()
	metrics := telemetry.WrapMetrics(counters)

	catalog := materials.Default()
	if cfg.MaterialsPath != "" {
		catalog, err = materials.Load(cfg.MaterialsPath)
		if err != nil {
			return err
		}
	}

	entityTree := tree.New(cfg.GridCellSizeMeters)
	registry := avatars.NewRegistry()

	hub := ws.NewHub(ws.HubConfig{
		Logger:    telemetryLogger,
		Metrics:   metrics,
		QueueSize: cfg.BroadcastQueueSize,
	})
	defer hub.Close()

	system, err := collision.NewSystem(collision.SystemConfig{
		Tree:      entityTree,
		Avatars:   registry,
		Sender:    hub,
		Observer:  hub,
		Publisher: router,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	loop, err := sim.NewLoop(system, sim.LoopConfig{
		TickRate:   cfg.TickRate,
		TickBudget: cfg.TickBudget(),
	}, router, metrics, nil)
	if err != nil {
		return err
	}

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go loop.Run(loopCtx)

	handler := ws.NewHandler(hub, entityTree, registry, catalog, ws.HandlerConfig{
		Logger:  telemetryLogger,
		Metrics: metrics,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.Handle)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counters.Snapshot())
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	telemetryLogger.Printf("entity server listening on %s (tick rate %d)", cfg.Addr, cfg.TickRate)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
