package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/JulianGro/athena-entity-server/internal/entity"
)

// SpatialIndex is the authoritative entity tree. All entity reads and
// mutations performed by the collision pass happen between a successful
// TryLockForWrite and the matching Unlock.
type SpatialIndex interface {
	// TryLockForWrite attempts to take write access without blocking.
	TryLockForWrite() bool
	Unlock()
	// MovingEntities snapshots the current active set. The snapshot is not
	// mutated by the tree while write access is held.
	MovingEntities() []*entity.Item
	// FindShapeCollisions fills list with contacts between the probe's
	// shape and every other entity, up to the list's capacity. Contact
	// geometry is in raw world coordinates; Other carries the counterpart.
	FindShapeCollisions(probe *entity.Item, list *List) bool
	// UpdateEntity applies an authoritative property update. The tree
	// re-sorts the entity in its activity index; the collision pass never
	// inspects a result.
	UpdateEntity(id entity.ID, props entity.Properties)
}

// Avatar is one externally-driven humanoid body, reported in raw world
// coordinates.
type Avatar interface {
	Position() mgl64.Vec3
	BoundingRadius() float64
	// FindSphereCollisions fills list with contacts between the query
	// sphere and the avatar's body shapes, annotating each with the
	// avatar's own motion as AddedVelocity.
	FindSphereCollisions(center mgl64.Vec3, radius float64, list *List) bool
}

// AvatarRegistry enumerates the currently connected avatars.
type AvatarRegistry interface {
	ForEachAvatar(fn func(Avatar))
}

// EditSender queues outbound property-edit messages. Fire-and-forget; no
// acknowledgment is consumed here.
type EditSender interface {
	QueueEditMessage(id entity.ID, props entity.Properties)
}

// Collision is the geometry carried by an entity-entity collision
// notification, in raw world coordinates.
type Collision struct {
	Penetration  mgl64.Vec3
	ContactPoint mgl64.Vec3
}

// Observer receives one notification per resolved entity-entity pair. No
// equivalent is emitted for entity-avatar hard collisions.
type Observer interface {
	EntityCollisionWithEntity(idA, idB entity.ID, collision Collision)
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(idA, idB entity.ID, collision Collision)

func (f ObserverFunc) EntityCollisionWithEntity(idA, idB entity.ID, collision Collision) {
	if f == nil {
		return
	}
	f(idA, idB, collision)
}
