// Package collision implements the per-tick entity collision pass: pair
// resolution against the spatial tree, hard collisions against avatars, and
// propagation of the resulting property updates back onto the tree and the
// network.
package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/JulianGro/athena-entity-server/internal/entity"
)

const (
	// MaxContactsPerEntity bounds the reusable avatar-contact buffer.
	MaxContactsPerEntity = 16
	// maxEntityScanContacts bounds one entity-pair scan. Overlaps beyond
	// the cap are dropped; the scan is best-effort, not exhaustive.
	maxEntityScanContacts = 32
)

// Info is one contact record. Penetration points from the probing body into
// the other body; Penetration, ContactPoint, and AddedVelocity are raw world
// coordinates as produced by the contact's owner.
type Info struct {
	Penetration   mgl64.Vec3
	ContactPoint  mgl64.Vec3
	AddedVelocity mgl64.Vec3
	Damping       float64
	Elasticity    float64
	Other         *entity.Item
}

// List is a bounded, reusable contact buffer. Adds beyond capacity are
// dropped and reported through the return value of Add.
type List struct {
	contacts []Info
	capacity int
}

func NewList(capacity int) *List {
	if capacity <= 0 {
		capacity = MaxContactsPerEntity
	}
	return &List{contacts: make([]Info, 0, capacity), capacity: capacity}
}

// Add appends a contact. It reports false when the buffer is full.
func (l *List) Add(info Info) bool {
	if len(l.contacts) >= l.capacity {
		return false
	}
	l.contacts = append(l.contacts, info)
	return true
}

func (l *List) Size() int {
	return len(l.contacts)
}

// Get returns a pointer into the buffer so callers can annotate contacts in
// place. It returns nil when i is out of range.
func (l *List) Get(i int) *Info {
	if i < 0 || i >= len(l.contacts) {
		return nil
	}
	return &l.contacts[i]
}

// Clear empties the buffer for reuse without releasing its backing storage.
func (l *List) Clear() {
	l.contacts = l.contacts[:0]
}
