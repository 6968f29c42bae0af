// Package tree holds the authoritative spatial index. A uniform grid over
// tree-unit space answers broad-phase overlap queries; narrow phase tests
// bounding spheres. The tree also maintains the moving set scanned by the
// collision pass.
//
// Access discipline: one write lock guards all entity state. The collision
// pass takes it opportunistically with TryLockForWrite; other subsystems
// (network intake, diagnostics) block on Lock. Mutating methods expect the
// caller to hold the lock; no method acquires it recursively.
package tree

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/JulianGro/athena-entity-server/internal/collision"
	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/units"
)

// DefaultCellSizeMeters is the grid cell edge used when no override is
// configured.
const DefaultCellSizeMeters = 16.0

type cellKey struct {
	X int
	Y int
	Z int
}

type gridEntry struct {
	cells []cellKey
}

type EntityTree struct {
	mu          sync.Mutex
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]uuid.UUID
	entries     map[uuid.UUID]*gridEntry
	entities    map[uuid.UUID]*entity.Item
	moving      map[uuid.UUID]*entity.Item
}

// New builds an empty tree with the given grid cell size in meters.
func New(cellSizeMeters float64) *EntityTree {
	if cellSizeMeters <= 0 {
		cellSizeMeters = DefaultCellSizeMeters
	}
	cellSize := units.ToTree(cellSizeMeters)
	return &EntityTree{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]uuid.UUID),
		entries:     make(map[uuid.UUID]*gridEntry),
		entities:    make(map[uuid.UUID]*entity.Item),
		moving:      make(map[uuid.UUID]*entity.Item),
	}
}

// TryLockForWrite attempts to take write access without blocking.
func (t *EntityTree) TryLockForWrite() bool {
	return t.mu.TryLock()
}

// Lock takes write access, blocking until available.
func (t *EntityTree) Lock() {
	t.mu.Lock()
}

func (t *EntityTree) Unlock() {
	t.mu.Unlock()
}

// AddEntity inserts an item. Caller must hold write access.
func (t *EntityTree) AddEntity(item *entity.Item) error {
	if item == nil {
		return fmt.Errorf("tree: nil entity")
	}
	id := item.ID().UUID
	if _, exists := t.entities[id]; exists {
		return fmt.Errorf("tree: entity %s already present", id)
	}
	t.entities[id] = item
	t.bucket(item)
	if item.Moving() {
		t.moving[id] = item
	}
	return nil
}

// RemoveEntity deletes an item. Caller must hold write access.
func (t *EntityTree) RemoveEntity(id uuid.UUID) {
	entry, ok := t.entries[id]
	if ok {
		t.removeFromCells(id, entry.cells)
		delete(t.entries, id)
	}
	delete(t.entities, id)
	delete(t.moving, id)
}

// EntityByID looks an item up. Caller must hold write access.
func (t *EntityTree) EntityByID(id uuid.UUID) *entity.Item {
	return t.entities[id]
}

// AcknowledgeEntity marks a pending identifier as known, admitting the item
// to collision processing. Caller must hold write access.
func (t *EntityTree) AcknowledgeEntity(id uuid.UUID) bool {
	item, ok := t.entities[id]
	if !ok {
		return false
	}
	item.Acknowledge()
	return true
}

// MovingEntities snapshots the active set. Caller must hold write access.
func (t *EntityTree) MovingEntities() []*entity.Item {
	snapshot := make([]*entity.Item, 0, len(t.moving))
	for _, item := range t.moving {
		snapshot = append(snapshot, item)
	}
	return snapshot
}

// Count reports the number of stored entities. Caller must hold write access.
func (t *EntityTree) Count() int {
	return len(t.entities)
}

// UpdateEntity applies an authoritative property update and re-sorts the
// item in the grid and the moving set. Unknown ids are ignored. Caller must
// hold write access.
func (t *EntityTree) UpdateEntity(id entity.ID, props entity.Properties) {
	item, ok := t.entities[id.UUID]
	if !ok {
		return
	}
	item.ApplyProperties(props)
	t.rebucket(item)
	if item.Moving() {
		t.moving[id.UUID] = item
	} else {
		delete(t.moving, id.UUID)
	}
}

// FindShapeCollisions fills list with contacts between the probe's bounding
// sphere and every other entity, up to the list's capacity. Contact geometry
// is produced in raw world coordinates with the penetration pointing from
// the probe into the counterpart. Caller must hold write access.
func (t *EntityTree) FindShapeCollisions(probe *entity.Item, list *collision.List) bool {
	if probe == nil || list == nil {
		return false
	}
	probeID := probe.ID().UUID
	center := probe.Position()
	radius := probe.Radius()

	found := false
	seen := make(map[uuid.UUID]struct{})
	for _, key := range t.cellsForSphere(center, radius) {
		for _, otherID := range t.cells[key] {
			if otherID == probeID {
				continue
			}
			if _, dup := seen[otherID]; dup {
				continue
			}
			seen[otherID] = struct{}{}
			other, ok := t.entities[otherID]
			if !ok {
				continue
			}
			info, overlaps := sphereContact(probe, other)
			if !overlaps {
				continue
			}
			found = true
			if !list.Add(info) {
				// best-effort: overflow contacts are dropped
				return found
			}
		}
	}
	return found
}

// sphereContact tests two bounding spheres and produces a contact in raw
// world coordinates.
func sphereContact(probe, other *entity.Item) (collision.Info, bool) {
	centerA := units.VecToMeters(probe.Position())
	centerB := units.VecToMeters(other.Position())
	radiusA := units.ToMeters(probe.Radius())
	radiusB := units.ToMeters(other.Radius())

	delta := centerB.Sub(centerA)
	distance := delta.Len()
	totalRadius := radiusA + radiusB
	if distance >= totalRadius {
		return collision.Info{}, false
	}

	depth := totalRadius - distance
	direction := mgl64.Vec3{}
	if distance > 0 {
		direction = delta.Mul(1.0 / distance)
	}
	return collision.Info{
		Penetration:   direction.Mul(depth),
		ContactPoint:  centerA.Add(direction.Mul(radiusA - 0.5*depth)),
		AddedVelocity: units.VecToMeters(other.Velocity()),
		Other:         other,
	}, true
}

func (t *EntityTree) bucket(item *entity.Item) {
	cells := t.cellsForSphere(item.Position(), item.Radius())
	id := item.ID().UUID
	t.entries[id] = &gridEntry{cells: cells}
	for _, key := range cells {
		t.cells[key] = append(t.cells[key], id)
	}
}

func (t *EntityTree) rebucket(item *entity.Item) {
	id := item.ID().UUID
	if entry, ok := t.entries[id]; ok {
		t.removeFromCells(id, entry.cells)
	}
	t.bucket(item)
}

func (t *EntityTree) removeFromCells(id uuid.UUID, cells []cellKey) {
	for _, key := range cells {
		bucket := t.cells[key]
		if len(bucket) == 0 {
			continue
		}
		for i := range bucket {
			if bucket[i] != id {
				continue
			}
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
		if len(bucket) == 0 {
			delete(t.cells, key)
		} else {
			t.cells[key] = bucket
		}
	}
}

func (t *EntityTree) cellsForSphere(center mgl64.Vec3, radius float64) []cellKey {
	minX := int(math.Floor((center.X() - radius) * t.invCellSize))
	maxX := int(math.Floor((center.X() + radius) * t.invCellSize))
	minY := int(math.Floor((center.Y() - radius) * t.invCellSize))
	maxY := int(math.Floor((center.Y() + radius) * t.invCellSize))
	minZ := int(math.Floor((center.Z() - radius) * t.invCellSize))
	maxZ := int(math.Floor((center.Z() + radius) * t.invCellSize))

	cells := make([]cellKey, 0, (maxX-minX+1)*(maxY-minY+1)*(maxZ-minZ+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				cells = append(cells, cellKey{X: x, Y: y, Z: z})
			}
		}
	}
	return cells
}
