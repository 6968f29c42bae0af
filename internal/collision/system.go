package collision

import (
	"context"
	"fmt"
	"time"

	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/telemetry"
	"github.com/JulianGro/athena-entity-server/logging"
	loggingphysics "github.com/JulianGro/athena-entity-server/logging/physics"
)

// Counter keys recorded by the collision pass.
const (
	MetricTicksRun            = "collision.ticks_run"
	MetricTicksSkipped        = "collision.ticks_skipped"
	MetricPairsResolved       = "collision.pairs_resolved"
	MetricContactsSkipped     = "collision.contacts_skipped"
	MetricDegenerateContacts  = "collision.degenerate_contacts"
	MetricAvatarImpulses      = "collision.avatar_impulses"
	MetricMissingCounterparts = "collision.missing_counterparts"
)

// SystemConfig wires the collision pass to its collaborators. Tree is
// required; everything else degrades to a no-op when absent.
type SystemConfig struct {
	Tree      SpatialIndex
	Avatars   AvatarRegistry
	Sender    EditSender
	Observer  Observer
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Clock     logging.Clock
}

// System runs the collision pass. It holds no entity references across
// ticks; everything it consults is re-fetched from the tree each pass.
type System struct {
	tree      SpatialIndex
	avatars   AvatarRegistry
	sender    EditSender
	observer  Observer
	publisher logging.Publisher
	metrics   telemetry.Metrics
	clock     logging.Clock

	// reusable avatar-contact buffer, cleared per entity
	collisions *List
}

// NewSystem validates the wiring and builds a collision system.
func NewSystem(cfg SystemConfig) (*System, error) {
	if cfg.Tree == nil {
		return nil, fmt.Errorf("collision: spatial index is required")
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	return &System{
		tree:       cfg.Tree,
		avatars:    cfg.Avatars,
		sender:     cfg.Sender,
		observer:   cfg.Observer,
		publisher:  publisher,
		metrics:    metrics,
		clock:      clock,
		collisions: NewList(MaxContactsPerEntity),
	}, nil
}

// RunTick performs one collision pass. Write access to the tree is acquired
// opportunistically; when unavailable the whole tick is skipped and the pass
// is retried next tick. There is no failure return: every recoverable
// condition is handled in place.
func (s *System) RunTick(ctx context.Context, tick uint64) {
	if !s.tree.TryLockForWrite() {
		s.metrics.Add(MetricTicksSkipped, 1)
		loggingphysics.TickContention(ctx, s.publisher, tick)
		return
	}
	defer s.tree.Unlock()

	s.metrics.Add(MetricTicksRun, 1)
	for _, item := range s.tree.MovingEntities() {
		s.checkEntity(ctx, tick, item)
	}
}

func (s *System) checkEntity(ctx context.Context, tick uint64, item *entity.Item) {
	s.updateCollisionWithEntities(ctx, tick, item)
	s.updateCollisionWithAvatars(tick, item)
}
