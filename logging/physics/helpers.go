package physics

import (
	"context"

	"github.com/JulianGro/athena-entity-server/logging"
)

const (
	// EventCollisionResolved is emitted when an entity pair receives a
	// collision response.
	EventCollisionResolved logging.EventType = "physics.collision_resolved"
	// EventContactMissingCounterpart is emitted when an overlap record
	// arrives without a usable counterpart reference.
	EventContactMissingCounterpart logging.EventType = "physics.contact_missing_counterpart"
	// EventTickContention is emitted when the collision pass skips a tick
	// because tree write access was unavailable.
	EventTickContention logging.EventType = "physics.tick_contention"
	// EventTickBudgetOverrun is emitted when a collision pass exceeds the
	// allotted tick budget.
	EventTickBudgetOverrun logging.EventType = "physics.tick_budget_overrun"
)

// CollisionResolvedPayload captures the contact geometry for a resolved pair,
// in raw world coordinates.
type CollisionResolvedPayload struct {
	Penetration  [3]float64 `json:"penetration"`
	ContactPoint [3]float64 `json:"contactPoint"`
}

// CollisionResolved publishes a debug event for one resolved entity pair.
func CollisionResolved(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload CollisionResolvedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCollisionResolved,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPhysics,
		Payload:  payload,
	})
}

// ContactMissingCounterpart publishes a warning for a malformed overlap
// record. The contact is skipped, never fatal.
func ContactMissingCounterpart(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventContactMissingCounterpart,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPhysics,
	})
}

// TickContention publishes a debug event when the tick is skipped wholesale.
// Contention is an expected outcome, not a fault.
func TickContention(ctx context.Context, pub logging.Publisher, tick uint64) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickContention,
		Tick:     tick,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPhysics,
	})
}

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
}

// TickBudgetOverrun publishes a warning when the collision pass exceeds the
// configured tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPhysics,
		Payload:  payload,
	})
}
