// Package units owns the conversion between raw world coordinates (meters)
// and the normalized tree-unit space the collision core computes in. The
// conversion happens exactly twice per resolved contact: once when contact
// data is read off the spatial index and once when a property update is
// written back out.
package units

import "github.com/go-gl/mathgl/mgl64"

// WorldScale is the edge length, in meters, of the unit cube spanned by
// normalized tree space.
const WorldScale = 16384.0

// ToTree converts a scalar distance or speed from meters to tree units.
func ToTree(meters float64) float64 {
	return meters / WorldScale
}

// ToMeters converts a scalar distance or speed from tree units to meters.
func ToMeters(treeUnits float64) float64 {
	return treeUnits * WorldScale
}

// VecToTree converts a position, velocity, or penetration vector from meters
// to tree units.
func VecToTree(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(1.0 / WorldScale)
}

// VecToMeters converts a vector from tree units back to meters.
func VecToMeters(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(WorldScale)
}
