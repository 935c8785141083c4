package action

import (
	"fmt"
	"math"
)

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Center is the middle of the unit cell at v.
func (v Vec3i) Center() Vec3f {
	return Vec3f{X: float64(v.X) + 0.5, Y: float64(v.Y) + 0.5, Z: float64(v.Z) + 0.5}
}

func (v Vec3i) String() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

func Vec3iFromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

type Vec3f struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3f) Dist(o Vec3f) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func Vec3fFromArray(a [3]float64) Vec3f { return Vec3f{X: a[0], Y: a[1], Z: a[2]} }

// Side is the block face an action is aimed at.
type Side uint8

const (
	SideDown Side = iota
	SideUp
	SideNorth
	SideSouth
	SideWest
	SideEast
)

var sideNames = [...]string{"DOWN", "UP", "NORTH", "SOUTH", "WEST", "EAST"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return "UNKNOWN"
}

func ParseSide(s string) (Side, bool) {
	for i, n := range sideNames {
		if n == s {
			return Side(i), true
		}
	}
	return SideUp, false
}

func (s Side) Normal() Vec3i {
	switch s {
	case SideDown:
		return Vec3i{Y: -1}
	case SideUp:
		return Vec3i{Y: 1}
	case SideNorth:
		return Vec3i{Z: -1}
	case SideSouth:
		return Vec3i{Z: 1}
	case SideWest:
		return Vec3i{X: -1}
	default:
		return Vec3i{X: 1}
	}
}

// FaceCenter returns the center of face s of the cell at pos.
func FaceCenter(pos Vec3i, s Side) Vec3f {
	c := pos.Center()
	n := s.Normal()
	return Vec3f{X: c.X + 0.5*float64(n.X), Y: c.Y + 0.5*float64(n.Y), Z: c.Z + 0.5*float64(n.Z)}
}

type Hand uint8

const (
	MainHand Hand = iota
	OffHand
)

func (h Hand) String() string {
	if h == OffHand {
		return "OFF_HAND"
	}
	return "MAIN_HAND"
}

// HitResult is the ray hit a placement or interaction is issued against.
type HitResult struct {
	Pos    Vec3i
	Side   Side
	Inside bool
}

// Rotation in degrees. Yaw 0 faces +Z, pitch is positive looking down.
type Rotation struct {
	Yaw   float64
	Pitch float64
}

// LookAt returns the rotation that points from eye at target.
func LookAt(eye, target Vec3f) Rotation {
	dx := target.X - eye.X
	dy := target.Y - eye.Y
	dz := target.Z - eye.Z
	h := math.Sqrt(dx*dx + dz*dz)
	yaw := math.Atan2(-dx, dz) * 180 / math.Pi
	pitch := -math.Atan2(dy, h) * 180 / math.Pi
	return Rotation{Yaw: yaw, Pitch: pitch}
}

// Entity is an item entity reported by the server.
type Entity struct {
	ID   string
	Item string
	Pos  Vec3f
}
