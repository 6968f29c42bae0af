package collision

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/JulianGro/athena-entity-server/internal/entity"
)

// fakeAvatar scripts one avatar with canned contacts. Coordinates are raw
// world meters.
type fakeAvatar struct {
	position       mgl64.Vec3
	boundingRadius float64
	contacts       []Info
	queries        int
}

func (a *fakeAvatar) Position() mgl64.Vec3 { return a.position }

func (a *fakeAvatar) BoundingRadius() float64 { return a.boundingRadius }

func (a *fakeAvatar) FindSphereCollisions(center mgl64.Vec3, radius float64, list *List) bool {
	a.queries++
	for _, contact := range a.contacts {
		if !list.Add(contact) {
			break
		}
	}
	return len(a.contacts) > 0
}

type fakeAvatarSource struct {
	avatars []*fakeAvatar
}

func (s *fakeAvatarSource) ForEachAvatar(fn func(Avatar)) {
	for _, avatar := range s.avatars {
		fn(avatar)
	}
}

func TestAvatarBroadPhaseReject(t *testing.T) {
	farAvatar := &fakeAvatar{position: mgl64.Vec3{100, 0, 0}, boundingRadius: 1}
	source := &fakeAvatarSource{avatars: []*fakeAvatar{farAvatar}}
	h := newHarness(t, source)

	item := mkEntity(t, entitySpec{velocity: mgl64.Vec3{1, 0, 0}, movable: true})
	h.tree.moving = []*entity.Item{item}
	h.tree.items = []*entity.Item{item}

	h.system.RunTick(context.Background(), 1)

	if farAvatar.queries != 0 {
		t.Fatal("distant avatar must be rejected before the exact query")
	}
}

func TestAvatarStaticEntityNeverPushed(t *testing.T) {
	avatar := &fakeAvatar{position: mgl64.Vec3{0.5, 0, 0}, boundingRadius: 1}
	source := &fakeAvatarSource{avatars: []*fakeAvatar{avatar}}
	h := newHarness(t, source)

	item := mkEntity(t, entitySpec{velocity: mgl64.Vec3{1, 0, 0}, movable: false})
	h.tree.moving = []*entity.Item{item}
	h.tree.items = []*entity.Item{item}

	h.system.RunTick(context.Background(), 1)

	if avatar.queries != 0 {
		t.Fatal("immovable entity must skip the avatar pass entirely")
	}
}

func TestAvatarSeparatingContactIgnored(t *testing.T) {
	// entity receding from the avatar: (added - velocity) projects
	// positively onto the penetration, which this path treats as separating
	avatar := &fakeAvatar{
		position:       mgl64.Vec3{0.5, 0, 0},
		boundingRadius: 1,
		contacts: []Info{{
			Penetration:   mgl64.Vec3{0.02, 0, 0},
			AddedVelocity: mgl64.Vec3{5, 0, 0},
		}},
	}
	source := &fakeAvatarSource{avatars: []*fakeAvatar{avatar}}
	h := newHarness(t, source)

	item := mkEntity(t, entitySpec{velocity: mgl64.Vec3{1, 0, 0}, movable: true})
	h.tree.moving = []*entity.Item{item}
	h.tree.items = []*entity.Item{item}

	h.system.RunTick(context.Background(), 1)

	if len(h.tree.updates) != 0 {
		t.Fatalf("separating avatar contact produced %d updates", len(h.tree.updates))
	}
}

func TestAvatarContactUsesTunedProfile(t *testing.T) {
	// approaching contact; the canned record carries no coefficients so any
	// bounce observed must come from the resolver's tuned profile
	avatar := &fakeAvatar{
		position:       mgl64.Vec3{0.5, 0, 0},
		boundingRadius: 1,
		contacts: []Info{{
			Penetration: mgl64.Vec3{0.02, 0, 0},
		}},
	}
	source := &fakeAvatarSource{avatars: []*fakeAvatar{avatar}}
	h := newHarness(t, source)

	item := mkEntity(t, entitySpec{velocity: mgl64.Vec3{1, 0, 0}, movable: true})
	h.tree.moving = []*entity.Item{item}
	h.tree.items = []*entity.Item{item}

	h.system.RunTick(context.Background(), 1)

	if len(h.tree.updates) != 1 {
		t.Fatalf("expected 1 hard-collision update, got %d", len(h.tree.updates))
	}
	props := h.tree.updates[0].props
	// relative velocity is -1 m/s along the contact normal; with the fixed
	// elasticity of 0.9 the reflected speed is 0.9 m/s
	if !approxEqual(props.Velocity, mgl64.Vec3{-0.9, 0, 0}) {
		t.Errorf("velocity = %v, want {-0.9 0 0}", props.Velocity)
	}
	if h.metrics.value(MetricAvatarImpulses) != 1 {
		t.Error("avatar impulse not counted")
	}
}

func TestAvatarContactCapBoundsWork(t *testing.T) {
	contacts := make([]Info, MaxContactsPerEntity+4)
	for i := range contacts {
		contacts[i] = Info{Penetration: mgl64.Vec3{0.02, 0, 0}}
	}
	avatar := &fakeAvatar{position: mgl64.Vec3{0.5, 0, 0}, boundingRadius: 1, contacts: contacts}
	source := &fakeAvatarSource{avatars: []*fakeAvatar{avatar}}
	h := newHarness(t, source)

	item := mkEntity(t, entitySpec{velocity: mgl64.Vec3{1, 0, 0}, movable: true})
	h.tree.moving = []*entity.Item{item}
	h.tree.items = []*entity.Item{item}
	h.tree.skipApplyProps = true

	h.system.RunTick(context.Background(), 1)

	if got := len(h.tree.updates); got != MaxContactsPerEntity {
		t.Fatalf("processed %d contacts, want exactly %d", got, MaxContactsPerEntity)
	}
}
