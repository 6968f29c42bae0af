package collision

import (
	"context"

	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/units"
	"github.com/JulianGro/athena-entity-server/logging"
	loggingphysics "github.com/JulianGro/athena-entity-server/logging/physics"
)

// updateCollisionWithEntities resolves entityA against every overlapping
// entity reported by the tree. One bad or uninteresting pair never aborts
// the scan.
func (s *System) updateCollisionWithEntities(ctx context.Context, tick uint64, entityA *entity.Item) {
	if entityA.IgnoreForCollisions() {
		return
	}
	if !entityA.ID().Known {
		return
	}

	list := NewList(maxEntityScanContacts)
	if !s.tree.FindShapeCollisions(entityA, list) {
		return
	}

	for i := 0; i < list.Size(); i++ {
		contact := list.Get(i)
		entityB := contact.Other
		if entityB == nil {
			s.metrics.Add(MetricMissingCounterparts, 1)
			loggingphysics.ContactMissingCounterpart(ctx, s.publisher, tick, entityRef(entityA.ID()))
			continue
		}
		if !entityB.ID().Known {
			// expected transient state, skipped without logging
			continue
		}

		// penetration is the depth entityA overlaps entityB, pointing
		// from A into B
		penetration := contact.Penetration
		penetrationInTreeUnits := units.VecToTree(penetration)
		if penetrationInTreeUnits.Len() == 0 {
			s.metrics.Add(MetricDegenerateContacts, 1)
			continue
		}

		relativeVelocity := entityA.Velocity().Sub(entityB.Velocity())

		fullyEnclosedCollision := penetrationInTreeUnits.Len() > entityA.LargestDimension()
		wantToMoveA := entityA.CollisionsWillMove()
		wantToMoveB := entityB.CollisionsWillMove()
		movingTowardEachOther := relativeVelocity.Dot(penetrationInTreeUnits) > 0

		if fullyEnclosedCollision || !movingTowardEachOther || (!wantToMoveA && !wantToMoveB) {
			s.metrics.Add(MetricContactsSkipped, 1)
			continue
		}

		now := s.clock.Now()

		axis := penetration.Normalize()
		axialVelocity := axis.Mul(relativeVelocity.Dot(axis))

		massA := entityA.ComputeMass()
		massB := entityB.ComputeMass()
		totalMass := massA + massB
		if totalMass <= 0 {
			s.metrics.Add(MetricDegenerateContacts, 1)
			continue
		}
		massRatioA := 2.0 * massB / totalMass
		massRatioB := 2.0 * massA / totalMass

		// an immovable body is never perturbed regardless of mass
		if wantToMoveA && !wantToMoveB {
			massRatioA = 2.0
			massRatioB = 0.0
		}
		if !wantToMoveA && wantToMoveB {
			massRatioA = 0.0
			massRatioB = 2.0
		}

		if wantToMoveA {
			newVelocityA := entityA.Velocity().Sub(axialVelocity.Mul(massRatioA))
			newPositionA := entityA.Position().Sub(penetrationInTreeUnits.Mul(0.5))
			s.applyUpdate(entityA, newPositionA, newVelocityA, now)
		}

		if wantToMoveB {
			newVelocityB := entityB.Velocity().Add(axialVelocity.Mul(massRatioB))
			newPositionB := entityB.Position().Add(penetrationInTreeUnits.Mul(0.5))
			s.applyUpdate(entityB, newPositionB, newVelocityB, now)
		}

		s.metrics.Add(MetricPairsResolved, 1)

		// notify after both updates so an observer can delete the pair
		collision := Collision{
			Penetration:  penetration,
			ContactPoint: units.VecToMeters(entityA.Position().Add(entityB.Position()).Mul(0.5)),
		}
		if s.observer != nil {
			s.observer.EntityCollisionWithEntity(entityA.ID(), entityB.ID(), collision)
		}
		loggingphysics.CollisionResolved(ctx, s.publisher, tick,
			entityRef(entityA.ID()), entityRef(entityB.ID()),
			loggingphysics.CollisionResolvedPayload{
				Penetration:  vec3Array(collision.Penetration),
				ContactPoint: vec3Array(collision.ContactPoint),
			})
	}
}

func entityRef(id entity.ID) logging.EntityRef {
	return logging.EntityRef{ID: id.String(), Kind: logging.EntityKindEntity}
}
