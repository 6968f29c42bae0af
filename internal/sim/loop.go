// Package sim owns the fixed-timestep loop that drives the collision pass.
package sim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/JulianGro/athena-entity-server/internal/collision"
	"github.com/JulianGro/athena-entity-server/internal/telemetry"
	"github.com/JulianGro/athena-entity-server/logging"
	loggingphysics "github.com/JulianGro/athena-entity-server/logging/physics"
)

const (
	MetricTickDurationMicros = "sim.tick_duration_micros"
	MetricTickOverruns       = "sim.tick_overruns"
)

// LoopConfig tunes the tick cadence. A zero TickBudget disables overrun
// reporting.
type LoopConfig struct {
	TickRate   int
	TickBudget time.Duration
}

// DefaultLoopConfig runs at 60 Hz with the budget set to the tick interval.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickRate:   60,
		TickBudget: time.Second / 60,
	}
}

// Loop invokes the collision system once per tick. Ticks never overlap; a
// pass that exceeds the interval simply delays the next one.
type Loop struct {
	system    *collision.System
	cfg       LoopConfig
	publisher logging.Publisher
	metrics   telemetry.Metrics
	clock     logging.Clock
	tick      atomic.Uint64
}

func NewLoop(system *collision.System, cfg LoopConfig, publisher logging.Publisher, metrics telemetry.Metrics, clock logging.Clock) (*Loop, error) {
	if system == nil {
		return nil, fmt.Errorf("sim: collision system is required")
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultLoopConfig().TickRate
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	return &Loop{
		system:    system,
		cfg:       cfg,
		publisher: publisher,
		metrics:   metrics,
		clock:     clock,
	}, nil
}

// Step runs exactly one tick and returns its number.
func (l *Loop) Step(ctx context.Context) uint64 {
	tick := l.tick.Add(1)
	start := l.clock.Now()
	l.system.RunTick(ctx, tick)
	elapsed := l.clock.Now().Sub(start)

	l.metrics.Store(MetricTickDurationMicros, uint64(elapsed.Microseconds()))
	if l.cfg.TickBudget > 0 && elapsed > l.cfg.TickBudget {
		l.metrics.Add(MetricTickOverruns, 1)
		loggingphysics.TickBudgetOverrun(ctx, l.publisher, tick, loggingphysics.TickBudgetOverrunPayload{
			DurationMillis: elapsed.Milliseconds(),
			BudgetMillis:   l.cfg.TickBudget.Milliseconds(),
			Ratio:          float64(elapsed) / float64(l.cfg.TickBudget),
		})
	}
	return tick
}

// Run steps the loop at the configured rate until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	interval := time.Second / time.Duration(l.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Step(ctx)
		}
	}
}

// CurrentTick reports the number of the last started tick.
func (l *Loop) CurrentTick() uint64 {
	return l.tick.Load()
}
