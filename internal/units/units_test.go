package units

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestScalarRoundTrip(t *testing.T) {
	values := []float64{0, 1, 80.5, -42.25, WorldScale, 1e-7}
	for _, meters := range values {
		back := ToMeters(ToTree(meters))
		if math.Abs(back-meters) > 1e-9*math.Max(1, math.Abs(meters)) {
			t.Errorf("round trip %v -> %v", meters, back)
		}
	}
}

func TestVecRoundTrip(t *testing.T) {
	v := mgl64.Vec3{12.5, -3.75, 9000}
	back := VecToMeters(VecToTree(v))
	for i := 0; i < 3; i++ {
		if math.Abs(back[i]-v[i]) > 1e-9*math.Max(1, math.Abs(v[i])) {
			t.Errorf("component %d: round trip %v -> %v", i, v[i], back[i])
		}
	}
}

func TestTreeSpaceIsSmaller(t *testing.T) {
	if ToTree(WorldScale) != 1.0 {
		t.Fatalf("ToTree(WorldScale) = %v, want 1", ToTree(WorldScale))
	}
}
