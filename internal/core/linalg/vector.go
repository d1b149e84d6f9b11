// Package linalg holds the vector and rotation helpers shared by the simulators,
// the collision engine and the navigator.
//
// Vectors and matrices are the mgl64 value types. A rotation is an orthonormal
// Mat3 whose columns are the body axes forward, left and up expressed in world
// coordinates, so Mul3x1 maps body coordinates into world coordinates.
package linalg

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type (
	Vec3 = mgl64.Vec3
	Mat3 = mgl64.Mat3
)

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

var (
	Zero  = Vec3{0, 0, 0}
	UnitX = Vec3{1, 0, 0}
	UnitY = Vec3{0, 1, 0}
	UnitZ = Vec3{0, 0, 1}
)

// Normalize returns v scaled to unit length, or the zero vector when v has no
// usable length. mgl64's Normalize divides by zero in that case.
func Normalize(v Vec3) Vec3 {
	l := v.Len()
	if l < Epsilon {
		return Zero
	}
	return v.Mul(1 / l)
}

// IsZero reports whether v is shorter than Epsilon.
func IsZero(v Vec3) bool {
	return v.Len() < Epsilon
}

func Clip(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func Sgn(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// ClipLen scales v down to at most max length.
func ClipLen(v Vec3, max float64) Vec3 {
	l := v.Len()
	if l > max && l > 0 {
		return v.Mul(max / l)
	}
	return v
}

// Angle returns the unsigned angle between a and b, or 0 if either is zero.
func Angle(a, b Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < Epsilon || lb < Epsilon {
		return 0
	}
	return math.Acos(Clip(a.Dot(b)/(la*lb), -1, 1))
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Hadamard multiplies a and b component-wise.
func Hadamard(a, b Vec3) Vec3 {
	return Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// Distance between two points.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Len()
}

// Finite reports whether all components of v are finite numbers.
func Finite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
