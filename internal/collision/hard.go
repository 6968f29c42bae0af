package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/units"
)

// The halting parameters approximate one frame of gravitational displacement
// in a 1.0 g field at the world's unit scale. Relative speeds below the
// threshold are treated as resting contact.
const (
	haltingEntityPeriod = 1.0 / 60.0
	haltingEntitySpeed  = 9.8 * haltingEntityPeriod / units.WorldScale
)

// applyHardCollision corrects an entity in response to one contact. Position
// is reset exactly to the colliding surface; velocity is modified according
// to elasticity and damping. All of info is expected in tree units.
//
//	elasticity = 0.0: inelastic, velocity normal to the contact is lost
//	elasticity = 1.0: fully elastic reflection
func (s *System) applyHardCollision(tick uint64, item *entity.Item, info Info) {
	if !item.ID().Known {
		return
	}

	position := item.Position()
	velocity := item.Velocity()

	relativeVelocity := info.AddedVelocity.Sub(velocity)
	if relativeVelocity.Dot(info.Penetration) < 0 {
		// entity is moving into the collision surface
		if info.Penetration.Len() == 0 {
			s.metrics.Add(MetricDegenerateContacts, 1)
			return
		}
		position = position.Sub(info.Penetration)

		if relativeVelocity.Len() < haltingEntitySpeed {
			// static friction: the entity moves with the colliding object
			velocity = info.AddedVelocity
		} else {
			direction := info.Penetration.Normalize()
			normalSpeed := relativeVelocity.Dot(direction)
			velocity = velocity.Add(direction.Mul(normalSpeed * (1.0 + info.Elasticity)))
			tangential := relativeVelocity.Sub(direction.Mul(normalSpeed))
			velocity = velocity.Add(tangential.Mul(clamp(info.Damping, 0, 1)))
		}
		s.metrics.Add(MetricAvatarImpulses, 1)
	}

	s.applyUpdate(item, position, velocity, s.clock.Now())
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func vec3Array(v mgl64.Vec3) [3]float64 {
	return [3]float64{v.X(), v.Y(), v.Z()}
}
