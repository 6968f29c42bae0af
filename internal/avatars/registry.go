// Package avatars tracks the currently connected avatars and answers
// sphere-overlap queries against their body shapes. Poses arrive from the
// network layer; the collision pass only reads.
package avatars

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/JulianGro/athena-entity-server/internal/collision"
)

// Body shape factors relative to the bounding radius. The torso sphere sits
// at the pose position; the head sphere is offset upward.
const (
	torsoRadiusFactor = 0.5
	headRadiusFactor  = 0.25
	headOffsetFactor  = 0.6
)

// Avatar is one connected humanoid body. All coordinates are raw world
// meters. Fields are immutable once published; pose updates replace the
// whole value.
type Avatar struct {
	id             uuid.UUID
	position       mgl64.Vec3
	boundingRadius float64
	velocity       mgl64.Vec3
}

func (a *Avatar) ID() uuid.UUID { return a.id }

func (a *Avatar) Position() mgl64.Vec3 { return a.position }

func (a *Avatar) BoundingRadius() float64 { return a.boundingRadius }

func (a *Avatar) Velocity() mgl64.Vec3 { return a.velocity }

// FindSphereCollisions tests the query sphere against the avatar's torso and
// head spheres, appending one contact per overlapping shape. Each contact
// carries the avatar's own motion as AddedVelocity; the penetration points
// from the query sphere into the avatar shape.
func (a *Avatar) FindSphereCollisions(center mgl64.Vec3, radius float64, list *collision.List) bool {
	if list == nil {
		return false
	}
	found := false
	for _, shape := range a.bodyShapes() {
		delta := shape.center.Sub(center)
		distance := delta.Len()
		totalRadius := radius + shape.radius
		if distance >= totalRadius {
			continue
		}
		depth := totalRadius - distance
		direction := mgl64.Vec3{}
		if distance > 0 {
			direction = delta.Mul(1.0 / distance)
		}
		found = true
		if !list.Add(collision.Info{
			Penetration:   direction.Mul(depth),
			ContactPoint:  center.Add(direction.Mul(radius - 0.5*depth)),
			AddedVelocity: a.velocity,
		}) {
			return found
		}
	}
	return found
}

type bodySphere struct {
	center mgl64.Vec3
	radius float64
}

func (a *Avatar) bodyShapes() [2]bodySphere {
	return [2]bodySphere{
		{center: a.position, radius: a.boundingRadius * torsoRadiusFactor},
		{
			center: a.position.Add(mgl64.Vec3{0, a.boundingRadius * headOffsetFactor, 0}),
			radius: a.boundingRadius * headRadiusFactor,
		},
	}
}

// Registry is the avatar hash consulted by the collision pass.
type Registry struct {
	mu      sync.RWMutex
	avatars map[uuid.UUID]*Avatar
}

func NewRegistry() *Registry {
	return &Registry{avatars: make(map[uuid.UUID]*Avatar)}
}

// UpsertPose publishes the latest pose for an avatar, creating it on first
// sight. Non-positive bounding radii are rejected.
func (r *Registry) UpsertPose(id uuid.UUID, position mgl64.Vec3, boundingRadius float64, velocity mgl64.Vec3) bool {
	if boundingRadius <= 0 {
		return false
	}
	r.mu.Lock()
	r.avatars[id] = &Avatar{
		id:             id,
		position:       position,
		boundingRadius: boundingRadius,
		velocity:       velocity,
	}
	r.mu.Unlock()
	return true
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.avatars, id)
	r.mu.Unlock()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.avatars)
}

// ForEachAvatar calls fn for every avatar present when the iteration began.
func (r *Registry) ForEachAvatar(fn func(collision.Avatar)) {
	r.mu.RLock()
	snapshot := make([]*Avatar, 0, len(r.avatars))
	for _, avatar := range r.avatars {
		snapshot = append(snapshot, avatar)
	}
	r.mu.RUnlock()
	for _, avatar := range snapshot {
		fn(avatar)
	}
}
