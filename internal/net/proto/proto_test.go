package proto

import (
	"strings"
	"testing"
)

func TestPeekTypeRoutesWithoutFullDecode(t *testing.T) {
	edit := EntityEdit{
		Ver:      ProtocolVersion,
		Type:     TypeEntityEdit,
		EntityID: "e-1",
		Position: [3]float64{1, 2, 3},
	}
	data, err := Encode(edit)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tag, err := PeekType(data)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if tag != TypeEntityEdit {
		t.Fatalf("tag = %q, want %q", tag, TypeEntityEdit)
	}

	var decoded EntityEdit
	if err := Decode(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.EntityID != edit.EntityID || decoded.Position != edit.Position {
		t.Errorf("decoded = %+v, want %+v", decoded, edit)
	}
}

func TestPeekTypeRejectsUntaggedMessage(t *testing.T) {
	data, err := Encode(Envelope{Ver: ProtocolVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := PeekType(data); err == nil || !strings.Contains(err.Error(), "missing type tag") {
		t.Fatalf("err = %v, want missing-tag failure", err)
	}
}

func TestPeekTypeRejectsGarbage(t *testing.T) {
	if _, err := PeekType([]byte{0xc1}); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestPoseRoundTripKeepsRadius(t *testing.T) {
	pose := AvatarPose{
		Ver:            ProtocolVersion,
		Type:           TypeAvatarPose,
		AvatarID:       "a-1",
		Position:       [3]float64{0, 1, 0},
		BoundingRadius: 1.1,
		Velocity:       [3]float64{0, 0, 2},
	}
	data, err := Encode(pose)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tag, err := PeekType(data)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if tag != TypeAvatarPose {
		t.Fatalf("tag = %q, want %q", tag, TypeAvatarPose)
	}

	var decoded AvatarPose
	if err := Decode(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.BoundingRadius != pose.BoundingRadius || decoded.Velocity != pose.Velocity {
		t.Errorf("decoded = %+v, want %+v", decoded, pose)
	}
}
