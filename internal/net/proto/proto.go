// Package proto defines the wire messages exchanged with peers. Messages
// are msgpack-encoded envelopes discriminated by a type tag.
package proto

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const ProtocolVersion = 1

// Message type tags.
const (
	TypeEntityEdit     = "entity_edit"
	TypeEntityAdd      = "entity_add"
	TypeEntityAck      = "entity_ack"
	TypeAvatarPose     = "avatar_pose"
	TypeCollisionEvent = "collision"
)

// Envelope carries only the fields needed to route a raw message.
type Envelope struct {
	Ver  int    `msgpack:"ver"`
	Type string `msgpack:"type"`
}

// EntityEdit mirrors an authoritative property update. Coordinates are raw
// world meters.
type EntityEdit struct {
	Ver        int        `msgpack:"ver"`
	Type       string     `msgpack:"type"`
	EntityID   string     `msgpack:"entityId"`
	Position   [3]float64 `msgpack:"position"`
	Velocity   [3]float64 `msgpack:"velocity"`
	LastEdited int64      `msgpack:"lastEdited"`
}

// EntityAdd asks the server to create an entity. The client supplies a
// provisional id which the server acknowledges once the entity is admitted.
type EntityAdd struct {
	Ver                 int        `msgpack:"ver"`
	Type                string     `msgpack:"type"`
	EntityID            string     `msgpack:"entityId"`
	Position            [3]float64 `msgpack:"position"`
	Velocity            [3]float64 `msgpack:"velocity"`
	Dimensions          [3]float64 `msgpack:"dimensions"`
	Material            string     `msgpack:"material,omitempty"`
	IgnoreForCollisions bool       `msgpack:"ignoreForCollisions"`
	CollisionsWillMove  bool       `msgpack:"collisionsWillMove"`
}

// EntityAck confirms an EntityAdd, binding the provisional id to the
// server-assigned one.
type EntityAck struct {
	Ver           int    `msgpack:"ver"`
	Type          string `msgpack:"type"`
	ProvisionalID string `msgpack:"provisionalId"`
	EntityID      string `msgpack:"entityId"`
}

// AvatarPose streams one avatar's pose. Coordinates are raw world meters.
type AvatarPose struct {
	Ver            int        `msgpack:"ver"`
	Type           string     `msgpack:"type"`
	AvatarID       string     `msgpack:"avatarId"`
	Position       [3]float64 `msgpack:"position"`
	BoundingRadius float64    `msgpack:"boundingRadius"`
	Velocity       [3]float64 `msgpack:"velocity"`
}

// CollisionEvent reports one resolved entity-entity collision to observers.
type CollisionEvent struct {
	Ver          int        `msgpack:"ver"`
	Type         string     `msgpack:"type"`
	EntityIDA    string     `msgpack:"entityIdA"`
	EntityIDB    string     `msgpack:"entityIdB"`
	Penetration  [3]float64 `msgpack:"penetration"`
	ContactPoint [3]float64 `msgpack:"contactPoint"`
}

// Encode marshals any outbound message.
func Encode(msg any) ([]byte, error) {
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("proto: encode: %w", err)
	}
	return data, nil
}

// PeekType extracts the routing tag without decoding the full message.
func PeekType(data []byte) (string, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("proto: decode envelope: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("proto: message missing type tag")
	}
	return env.Type, nil
}

// Decode unmarshals data into the concrete message for its type tag.
func Decode(data []byte, msg any) error {
	if err := msgpack.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("proto: decode: %w", err)
	}
	return nil
}
