package collision

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/JulianGro/athena-entity-server/internal/entity"
	loggingphysics "github.com/JulianGro/athena-entity-server/logging/physics"
)

func TestNewSystemRequiresTree(t *testing.T) {
	if _, err := NewSystem(SystemConfig{}); err == nil {
		t.Fatal("expected error for missing spatial index")
	}
}

func TestRunTickSkipsWhenLockUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.tree.lockAvailable = false
	h.tree.moving = []*entity.Item{mkEntity(t, entitySpec{velocity: mgl64.Vec3{1, 0, 0}, movable: true})}

	h.system.RunTick(context.Background(), 7)

	if h.tree.movingCalls != 0 {
		t.Fatal("skipped tick must not touch the active set")
	}
	if h.metrics.value(MetricTicksSkipped) != 1 {
		t.Error("skipped tick not counted")
	}
	if events := h.publisher.byType(loggingphysics.EventTickContention); len(events) != 1 {
		t.Errorf("expected 1 contention event, got %d", len(events))
	}
}

func TestRunTickVisitsEachMovingEntityOnce(t *testing.T) {
	h := newHarness(t, nil)
	first := mkEntity(t, entitySpec{velocity: mgl64.Vec3{1, 0, 0}, movable: true})
	second := mkEntity(t, entitySpec{velocity: mgl64.Vec3{0, 1, 0}, movable: true})
	h.tree.moving = []*entity.Item{first, second}

	visits := make(map[string]int)
	h.tree.findFn = func(probe *entity.Item, list *List) bool {
		visits[probe.ID().String()]++
		return false
	}

	h.system.RunTick(context.Background(), 1)

	if len(visits) != 2 {
		t.Fatalf("visited %d entities, want 2", len(visits))
	}
	for id, count := range visits {
		if count != 1 {
			t.Errorf("entity %s visited %d times", id, count)
		}
	}
	if h.tree.lockHeld {
		t.Error("write access not released after the pass")
	}
	if h.metrics.value(MetricTicksRun) != 1 {
		t.Error("completed tick not counted")
	}
}
