package types

import (
	"math"
	"time"
)

// Vec3 is a position or vector in the local ENU frame (x east, y north, z up), metres.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x" yaml:"x"`
	Y float64 `json:"y" msgpack:"y" yaml:"y"`
	Z float64 `json:"z" msgpack:"z" yaml:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

type Quaternion struct {
	X float64 `json:"x" msgpack:"x" yaml:"x"`
	Y float64 `json:"y" msgpack:"y" yaml:"y"`
	Z float64 `json:"z" msgpack:"z" yaml:"z"`
	W float64 `json:"w" msgpack:"w" yaml:"w"`
}

// Identity orientation; the zero Quaternion is treated the same way.
var Identity = Quaternion{W: 1}

// QuaternionFromYaw returns a rotation of yaw radians about the up axis.
func QuaternionFromYaw(yaw float64) Quaternion {
	return Quaternion{Z: math.Sin(yaw / 2), W: math.Cos(yaw / 2)}
}

// Yaw returns the rotation about the up axis in radians, counter-clockwise from east.
func (q Quaternion) Yaw() float64 {
	if q == (Quaternion{}) {
		return 0
	}
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// Heading converts the yaw into a compass heading in degrees, [0, 360).
func (q Quaternion) Heading() float64 {
	h := math.Mod(90-q.Yaw()*180/math.Pi, 360)
	if h < 0 {
		h += 360
	}
	return h
}

type Pose struct {
	Stamp       time.Time  `json:"stamp" msgpack:"stamp" yaml:"-"`
	Position    Vec3       `json:"position" msgpack:"position" yaml:"position"`
	Orientation Quaternion `json:"orientation" msgpack:"orientation" yaml:"orientation"`
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude" msgpack:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" msgpack:"longitude" yaml:"longitude"`
	Altitude  float64 `json:"altitude" msgpack:"altitude" yaml:"altitude"`
}

type GeoPose struct {
	Stamp       time.Time  `json:"stamp" msgpack:"stamp" yaml:"-"`
	Position    GeoPoint   `json:"position" msgpack:"position" yaml:"position"`
	Orientation Quaternion `json:"orientation" msgpack:"orientation" yaml:"orientation"`
}

type Velocity struct {
	Stamp   time.Time `json:"stamp" msgpack:"stamp"`
	Linear  Vec3      `json:"linear" msgpack:"linear"`
	Angular Vec3      `json:"angular" msgpack:"angular"`
}
