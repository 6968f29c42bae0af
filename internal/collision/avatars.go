package collision

import (
	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/units"
)

// Avatar contacts always use this tuned response profile, distinct from the
// physically-derived coefficients of the entity-pair path.
const (
	avatarContactElasticity = 0.9
	avatarContactDamping    = 0.1
)

// updateCollisionWithAvatars applies hard collisions between one entity and
// every avatar it touches. Avatars are externally driven; only the entity is
// ever altered.
func (s *System) updateCollisionWithAvatars(tick uint64, item *entity.Item) {
	if s.avatars == nil {
		return
	}
	if item.IgnoreForCollisions() || !item.CollisionsWillMove() {
		return
	}

	center := units.VecToMeters(item.Position())
	radius := units.ToMeters(item.Radius())

	s.avatars.ForEachAvatar(func(avatar Avatar) {
		// coarse sphere reject before the exact query
		totalRadius := avatar.BoundingRadius() + radius
		relativePosition := center.Sub(avatar.Position())
		if relativePosition.Dot(relativePosition) > totalRadius*totalRadius {
			return
		}

		s.collisions.Clear()
		if !avatar.FindSphereCollisions(center, radius, s.collisions) {
			return
		}
		for i := 0; i < s.collisions.Size(); i++ {
			contact := s.collisions.Get(i)
			contact.Damping = avatarContactDamping
			contact.Elasticity = avatarContactElasticity

			addedVelocity := units.VecToTree(contact.AddedVelocity)
			relativeVelocity := addedVelocity.Sub(item.Velocity())

			// only collide when the entity and the contact point are
			// approaching; the sign convention differs from the
			// entity-pair path because the penetration orientation
			// differs by source
			if relativeVelocity.Dot(contact.Penetration) <= 0 {
				info := Info{
					Penetration:   units.VecToTree(contact.Penetration),
					ContactPoint:  contact.ContactPoint,
					AddedVelocity: addedVelocity,
					Damping:       contact.Damping,
					Elasticity:    contact.Elasticity,
				}
				s.applyHardCollision(tick, item, info)
			}
		}
	})
}
