package collision

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/units"
)

// applyUpdate converts a resolved (position, velocity) pair from tree units
// back to raw world coordinates and propagates it: an authoritative update
// through the tree, then an outbound edit message. Both are fire-and-forget.
func (s *System) applyUpdate(item *entity.Item, position, velocity mgl64.Vec3, now time.Time) {
	props := entity.Properties{
		Position:   units.VecToMeters(position),
		Velocity:   units.VecToMeters(velocity),
		LastEdited: now,
	}
	// the tree re-sorts the entity in its activity index, waking static
	// entities that were just pushed
	s.tree.UpdateEntity(item.ID(), props)
	if s.sender != nil {
		s.sender.QueueEditMessage(item.ID(), props)
	}
}
