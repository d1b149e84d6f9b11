package linalg

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Identity orientation: forward +X, left +Y, up +Z.
func Identity() Mat3 {
	return mgl64.Ident3()
}

// Forward, Left and Up return the body axes of an orientation.
func Forward(m Mat3) Vec3 { return m.Col(0) }
func Left(m Mat3) Vec3    { return m.Col(1) }
func Up(m Mat3) Vec3      { return m.Col(2) }

// ToLocal expresses a world vector in the body frame of m.
func ToLocal(m Mat3, v Vec3) Vec3 {
	return m.Transpose().Mul3x1(v)
}

// ToWorld expresses a body-frame vector in world coordinates.
func ToWorld(m Mat3, v Vec3) Vec3 {
	return m.Mul3x1(v)
}

// Euler builds an orientation from pitch, yaw and roll in radians.
// Yaw turns about +Z, pitch raises the nose, roll banks about the forward axis.
func Euler(pitch, yaw, roll float64) Mat3 {
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cr, sr := math.Cos(roll), math.Sin(roll)

	forward := Vec3{cp * cy, cp * sy, sp}
	left := Vec3{cy*sp*sr - cr*sy, sy*sp*sr + cr*cy, -cp * sr}
	up := Vec3{-cr*cy*sp - sr*sy, -cr*sy*sp + sr*cy, cp * cr}

	return mgl64.Mat3FromCols(forward, left, up)
}

// EulerAngles is the inverse of Euler away from pitch = ±pi/2.
func EulerAngles(m Mat3) (pitch, yaw, roll float64) {
	pitch = math.Atan2(m.At(2, 0), math.Hypot(m.At(0, 0), m.At(1, 0)))
	yaw = math.Atan2(m.At(1, 0), m.At(0, 0))
	roll = math.Atan2(-m.At(2, 1), m.At(2, 2))
	return pitch, yaw, roll
}

// Skew returns the cross-product matrix of v: Skew(v).Mul3x1(x) == v.Cross(x).
func Skew(v Vec3) Mat3 {
	return mgl64.Mat3FromCols(
		Vec3{0, v[2], -v[1]},
		Vec3{-v[2], 0, v[0]},
		Vec3{v[1], -v[0], 0},
	)
}

// AxisToRotation maps a rotation vector (axis scaled by angle) to a rotation
// matrix with Rodrigues' formula.
func AxisToRotation(omega Vec3) Mat3 {
	theta := omega.Len()
	if theta < Epsilon {
		return mgl64.Ident3().Add(Skew(omega))
	}
	k := Skew(omega.Mul(1 / theta))
	return mgl64.Ident3().
		Add(k.Mul(math.Sin(theta))).
		Add(k.Mul3(k).Mul(1 - math.Cos(theta)))
}

// RotationToAxis is the inverse of AxisToRotation, returning a rotation vector
// with angle in [0, pi]. It goes through a quaternion so rotations close to pi
// keep a well defined axis.
func RotationToAxis(m Mat3) Vec3 {
	q := mgl64.Mat4ToQuat(m.Mat4()).Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < Epsilon {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(s, q.W)
	return q.V.Mul(angle / s)
}

// Orthonormalize rebuilds an orthonormal frame from the forward and left
// columns of m with Gram-Schmidt. Up is recomputed as forward x left.
func Orthonormalize(m Mat3) Mat3 {
	f := Normalize(m.Col(0))
	if IsZero(f) {
		return mgl64.Ident3()
	}
	l := m.Col(1)
	l = Normalize(l.Sub(f.Mul(f.Dot(l))))
	if IsZero(l) {
		l = perpendicular(f)
	}
	return mgl64.Mat3FromCols(f, l, f.Cross(l))
}

// OrthonormalityError is the largest deviation of m^T m from the identity.
func OrthonormalityError(m Mat3) float64 {
	p := m.Transpose().Mul3(m)
	id := mgl64.Ident3()
	worst := 0.0
	for i := range p {
		worst = math.Max(worst, math.Abs(p[i]-id[i]))
	}
	return worst
}

// LookAt returns the orientation whose forward axis is along forward and whose
// up axis is as close as possible to up.
func LookAt(forward, up Vec3) Mat3 {
	f := Normalize(forward)
	if IsZero(f) {
		f = UnitX
	}
	l := Normalize(up.Cross(f))
	if IsZero(l) {
		l = perpendicular(f)
	}
	return mgl64.Mat3FromCols(f, l, f.Cross(l))
}

// Basis returns a right-handed frame whose third column is the unit normal n.
// For a floor normal the first two columns are +X and +Y.
func Basis(n Vec3) Mat3 {
	n = Normalize(n)
	if IsZero(n) {
		return mgl64.Ident3()
	}
	helper := UnitZ
	if math.Abs(n[2]) >= 0.9 {
		helper = UnitY
	}
	t1 := Normalize(helper.Cross(n))
	t2 := n.Cross(t1)
	return mgl64.Mat3FromCols(t1, t2, n)
}

func perpendicular(v Vec3) Vec3 {
	helper := UnitZ
	if math.Abs(v[2]) > 0.9 {
		helper = UnitX
	}
	return Normalize(helper.Cross(v))
}
