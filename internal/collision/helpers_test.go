package collision

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/logging"
)

// fakeTree scripts the spatial index. UpdateEntity applies properties to the
// stored items so sequential resolution sees fresh state, like the real tree.
type fakeTree struct {
	lockAvailable  bool
	lockHeld       bool
	moving         []*entity.Item
	items          []*entity.Item
	movingCalls    int
	findFn         func(probe *entity.Item, list *List) bool
	findCalls      int
	updates        []treeUpdate
	skipApplyProps bool
}

type treeUpdate struct {
	id    entity.ID
	props entity.Properties
}

func newFakeTree() *fakeTree {
	return &fakeTree{lockAvailable: true}
}

func (t *fakeTree) TryLockForWrite() bool {
	if !t.lockAvailable {
		return false
	}
	t.lockHeld = true
	return true
}

func (t *fakeTree) Unlock() {
	t.lockHeld = false
}

func (t *fakeTree) MovingEntities() []*entity.Item {
	t.movingCalls++
	return append([]*entity.Item(nil), t.moving...)
}

func (t *fakeTree) FindShapeCollisions(probe *entity.Item, list *List) bool {
	t.findCalls++
	if t.findFn == nil {
		return false
	}
	return t.findFn(probe, list)
}

func (t *fakeTree) UpdateEntity(id entity.ID, props entity.Properties) {
	t.updates = append(t.updates, treeUpdate{id: id, props: props})
	if t.skipApplyProps {
		return
	}
	for _, item := range append(t.moving, t.items...) {
		if item.ID().UUID == id.UUID {
			item.ApplyProperties(props)
			return
		}
	}
}

type recordedEdit struct {
	id    entity.ID
	props entity.Properties
}

type recordingSender struct {
	mu    sync.Mutex
	edits []recordedEdit
}

func (s *recordingSender) QueueEditMessage(id entity.ID, props entity.Properties) {
	s.mu.Lock()
	s.edits = append(s.edits, recordedEdit{id: id, props: props})
	s.mu.Unlock()
}

type recordedCollision struct {
	idA       entity.ID
	idB       entity.ID
	collision Collision
}

type recordingObserver struct {
	events []recordedCollision
}

func (o *recordingObserver) EntityCollisionWithEntity(idA, idB entity.ID, c Collision) {
	o.events = append(o.events, recordedCollision{idA: idA, idB: idB, collision: c})
}

type fakeMetrics struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counters: make(map[string]uint64)}
}

func (m *fakeMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	m.counters[key] += delta
	m.mu.Unlock()
}

func (m *fakeMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	m.counters[key] = value
	m.mu.Unlock()
}

func (m *fakeMetrics) value(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event logging.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) byType(eventType logging.EventType) []logging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []logging.Event
	for _, event := range p.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// entitySpec is the shorthand used by tests; all values are raw world
// coordinates.
type entitySpec struct {
	position mgl64.Vec3
	velocity mgl64.Vec3
	dims     mgl64.Vec3
	density  float64
	movable  bool
	ignore   bool
	unknown  bool
}

func mkEntity(t *testing.T, spec entitySpec) *entity.Item {
	t.Helper()
	id := entity.NewID()
	if spec.unknown {
		id.Known = false
	}
	if spec.dims == (mgl64.Vec3{}) {
		spec.dims = mgl64.Vec3{1, 1, 1}
	}
	if spec.density == 0 {
		spec.density = 1000
	}
	item, err := entity.New(entity.Spec{
		ID:                  id,
		Position:            spec.position,
		Velocity:            spec.velocity,
		Dimensions:          spec.dims,
		Density:             spec.density,
		IgnoreForCollisions: spec.ignore,
		CollisionsWillMove:  spec.movable,
	})
	if err != nil {
		t.Fatalf("mkEntity: %v", err)
	}
	return item
}

type testHarness struct {
	tree      *fakeTree
	sender    *recordingSender
	observer  *recordingObserver
	metrics   *fakeMetrics
	publisher *recordingPublisher
	system    *System
}

func newHarness(t *testing.T, avatarSource AvatarRegistry) *testHarness {
	t.Helper()
	h := &testHarness{
		tree:      newFakeTree(),
		sender:    &recordingSender{},
		observer:  &recordingObserver{},
		metrics:   newFakeMetrics(),
		publisher: &recordingPublisher{},
	}
	system, err := NewSystem(SystemConfig{
		Tree:      h.tree,
		Avatars:   avatarSource,
		Sender:    h.sender,
		Observer:  h.observer,
		Publisher: h.publisher,
		Metrics:   h.metrics,
		Clock:     logging.ClockFunc(func() time.Time { return time.Unix(1000, 0) }),
	})
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	h.system = system
	return h
}
