// Package space defines render-space coordinates shared by the board and its tokens.
// This package is PURE and must NOT import any infrastructure packages.
package space

// Vec3 is an integer position in render space. Panels sit on multiples of the
// cell size and tokens walk one unit per tick, so integer axes keep
// "position == target" exact.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Axis selects one component of a Vec3.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes is the fixed processing order used by movement reconciliation.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Get returns the component on axis a.
func (v Vec3) Get(a Axis) int {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// With returns a copy of v with axis a set to n.
func (v Vec3) With(a Axis, n int) Vec3 {
	switch a {
	case AxisX:
		v.X = n
	case AxisY:
		v.Y = n
	default:
		v.Z = n
	}
	return v
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// ChebyshevDistance is the largest per-axis distance between v and o.
func (v Vec3) ChebyshevDistance(o Vec3) int {
	d := 0
	for _, a := range Axes {
		if n := abs(v.Get(a) - o.Get(a)); n > d {
			d = n
		}
	}
	return d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
