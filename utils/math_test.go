package utils

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecNear(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-4
}

func TestEulerToMat4Axes(t *testing.T) {
	tests := []struct {
		euler mgl32.Vec3
		in    mgl32.Vec3
		out   mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, math.Pi / 2}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{math.Pi / 2, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, math.Pi / 2, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}},
		// x applies before z
		{mgl32.Vec3{math.Pi / 2, 0, math.Pi / 2}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	for _, test := range tests {
		got := EulerToMat4(test.euler).Mul4x1(test.in.Vec4(1)).Vec3()
		if !vecNear(got, test.out) {
			t.Errorf("euler %v rotates %v to %v, expected %v", test.euler, test.in, got, test.out)
		}
	}
}

func TestQuatEulerRoundTrip(t *testing.T) {
	tests := []mgl32.Vec3{
		{0, 0, 0},
		{0.3, -0.4, 0.5},
		{-1.2, 0.2, 2.5},
		{0, 1.3, 0},
		{math.Pi / 2, 0, 0},
	}
	for _, e := range tests {
		q := mgl32.Mat4ToQuat(EulerToMat4(e))
		if got := QuatToEuler(q); !vecNear(got, e) {
			t.Errorf("euler %v round tripped to %v", e, got)
		}
	}
}

func TestFloatArray32to64(t *testing.T) {
	out := FloatArray32to64([]float32{0.5, -2})
	if len(out) != 2 || out[0] != 0.5 || out[1] != -2 {
		t.Errorf("widened to %v", out)
	}
}
