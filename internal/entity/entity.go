// Package entity defines the simulated object model owned by the spatial
// tree. Items are mutated only while the tree's write access is held.
package entity

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/JulianGro/athena-entity-server/internal/units"
)

// ID identifies an item. Known reports whether the identifier has been
// assigned and acknowledged by the authoritative server; items still waiting
// on acknowledgement are excluded from collision processing.
type ID struct {
	UUID  uuid.UUID
	Known bool
}

// NewID mints a fresh server-assigned identifier.
func NewID() ID {
	return ID{UUID: uuid.New(), Known: true}
}

// PendingID wraps a client-supplied identifier that has not been
// acknowledged yet.
func PendingID(id uuid.UUID) ID {
	return ID{UUID: id}
}

func (id ID) String() string {
	return id.UUID.String()
}

// Properties is the authoritative mutation payload applied through the tree
// and mirrored onto the network. Position and Velocity are raw world
// coordinates (meters, meters/second).
type Properties struct {
	Position   mgl64.Vec3
	Velocity   mgl64.Vec3
	LastEdited time.Time
}

// Spec carries the construction parameters for an item. Dimensions are in
// meters; the item stores them normalized.
type Spec struct {
	ID                  ID
	Position            mgl64.Vec3
	Velocity            mgl64.Vec3
	Dimensions          mgl64.Vec3
	Density             float64
	Material            string
	IgnoreForCollisions bool
	CollisionsWillMove  bool
}

// Item is one simulated object. Kinematic state is kept in tree units; the
// accessors never convert.
type Item struct {
	id                  ID
	position            mgl64.Vec3
	velocity            mgl64.Vec3
	dimensions          mgl64.Vec3
	density             float64
	material            string
	ignoreForCollisions bool
	collisionsWillMove  bool
	lastEdited          time.Time
}

// New validates the construction parameters and builds an item.
func New(spec Spec) (*Item, error) {
	if spec.Dimensions.X() <= 0 || spec.Dimensions.Y() <= 0 || spec.Dimensions.Z() <= 0 {
		return nil, fmt.Errorf("entity %s: non-positive dimensions %v", spec.ID, spec.Dimensions)
	}
	if spec.Density <= 0 {
		return nil, fmt.Errorf("entity %s: non-positive density %v", spec.ID, spec.Density)
	}
	return &Item{
		id:                  spec.ID,
		position:            units.VecToTree(spec.Position),
		velocity:            units.VecToTree(spec.Velocity),
		dimensions:          units.VecToTree(spec.Dimensions),
		density:             spec.Density,
		material:            spec.Material,
		ignoreForCollisions: spec.IgnoreForCollisions,
		collisionsWillMove:  spec.CollisionsWillMove,
	}, nil
}

func (e *Item) ID() ID { return e.id }

// Acknowledge marks a pending identifier as known.
func (e *Item) Acknowledge() { e.id.Known = true }

// Position returns the current position in tree units.
func (e *Item) Position() mgl64.Vec3 { return e.position }

// Velocity returns the current velocity in tree units per second.
func (e *Item) Velocity() mgl64.Vec3 { return e.velocity }

// Dimensions returns the bounding box extents in tree units.
func (e *Item) Dimensions() mgl64.Vec3 { return e.dimensions }

func (e *Item) Material() string { return e.material }

func (e *Item) IgnoreForCollisions() bool { return e.ignoreForCollisions }

func (e *Item) CollisionsWillMove() bool { return e.collisionsWillMove }

func (e *Item) LastEdited() time.Time { return e.lastEdited }

// Radius is the bounding sphere radius in tree units: half the diagonal of
// the dimensions box.
func (e *Item) Radius() float64 {
	return 0.5 * e.dimensions.Len()
}

// LargestDimension is the reference length for the fully-enclosed
// suppression test, in tree units.
func (e *Item) LargestDimension() float64 {
	return e.dimensions.Len()
}

// ComputeMass derives the item's mass in kilograms from density and volume.
// It is recomputed on every use so density or dimension edits take effect
// immediately.
func (e *Item) ComputeMass() float64 {
	dims := units.VecToMeters(e.dimensions)
	return e.density * dims.X() * dims.Y() * dims.Z()
}

// ApplyProperties applies an authoritative update. The caller must hold the
// tree's write access.
func (e *Item) ApplyProperties(props Properties) {
	e.position = units.VecToTree(props.Position)
	e.velocity = units.VecToTree(props.Velocity)
	e.lastEdited = props.LastEdited
}

// Moving reports whether the item has any velocity, which keeps it in the
// tree's moving set.
func (e *Item) Moving() bool {
	return e.velocity.Len() > 0
}
