package scene

import (
	"fmt"
	"math"
	"sync"

	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

// MarkerCount is the number of channel markers placed on the sphere.
const MarkerCount = 64

// Activity thresholds on the 0-100 scale.
const (
	levelRed    = 75
	levelYellow = 50
	levelGreen  = 25

	// ConnectThreshold is the level both ends of a connection must reach.
	ConnectThreshold = 50
)

// Color is a marker color band.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorCyan   Color = "cyan"
)

// Vec3 is a point in scene space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Marker is one labeled channel point on the sphere.
type Marker struct {
	Channel  int     `json:"channel"`
	Label    string  `json:"label"`
	Position Vec3    `json:"position"`
	Level    float64 `json:"level"`
	Color    Color   `json:"color"`
	Scale    float64 `json:"scale"`
}

// Connection is a line between two active markers.
type Connection struct {
	From    int     `json:"from"`
	To      int     `json:"to"`
	Opacity float64 `json:"opacity"`
}

// Frame is a point-in-time copy of the scene.
type Frame struct {
	Version     uint64       `json:"version"`
	Radius      float64      `json:"radius"`
	Markers     []Marker     `json:"markers"`
	Connections []Connection `json:"connections"`
}

// FibonacciPoint places point i of n evenly over a sphere of the given radius.
func FibonacciPoint(i, n int, radius float64) Vec3 {
	y := 1 - 2*(float64(i)+0.5)/float64(n)
	r := math.Sqrt(1 - y*y)
	theta := math.Pi * (1 + math.Sqrt(5)) * float64(i)
	return Vec3{
		X: math.Cos(theta) * r * radius,
		Y: y * radius,
		Z: math.Sin(theta) * r * radius,
	}
}

// ColorFor maps an activity level to its color band.
func ColorFor(level float64) Color {
	switch {
	case level >= levelRed:
		return ColorRed
	case level >= levelYellow:
		return ColorYellow
	case level >= levelGreen:
		return ColorGreen
	default:
		return ColorCyan
	}
}

// ScaleFor grows a marker with its activity level.
func ScaleFor(level float64) float64 {
	return 1 + level/100
}

// State owns the scene: marker placement is fixed at construction and each
// Update patches levels and rebuilds the connection set.
type State struct {
	mu          sync.RWMutex
	radius      float64
	markers     []Marker
	connections []Connection
	version     uint64
}

// NewState places MarkerCount markers on a sphere of the given radius, all
// idle.
func NewState(radius float64) *State {
	if radius <= 0 {
		radius = 1
	}
	markers := make([]Marker, MarkerCount)
	for i := range markers {
		markers[i] = Marker{
			Channel:  i,
			Label:    fmt.Sprintf("Ch %d", i),
			Position: FibonacciPoint(i, MarkerCount, radius),
			Color:    ColorFor(0),
			Scale:    ScaleFor(0),
		}
	}
	return &State{radius: radius, markers: markers, connections: []Connection{}}
}

// Update applies channel levels (0-100, keyed by channel id). Channels
// missing from levels go idle; ids outside the marker range are ignored.
func (s *State) Update(levels map[int]float64) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.markers {
		lvl := levels[i]
		s.markers[i].Level = lvl
		s.markers[i].Color = ColorFor(lvl)
		s.markers[i].Scale = ScaleFor(lvl)
	}

	conns := make([]Connection, 0)
	for i := 0; i < len(s.markers); i++ {
		a := s.markers[i].Level
		if a < ConnectThreshold {
			continue
		}
		for j := i + 1; j < len(s.markers); j++ {
			b := s.markers[j].Level
			if b < ConnectThreshold {
				continue
			}
			conns = append(conns, Connection{From: i, To: j, Opacity: math.Min(1, (a+b)/200)})
		}
	}
	s.connections = conns
	s.version++

	return s.frameLocked()
}

// Snapshot returns a copy of the current scene.
func (s *State) Snapshot() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameLocked()
}

func (s *State) frameLocked() Frame {
	f := Frame{
		Version:     s.version,
		Radius:      s.radius,
		Markers:     make([]Marker, len(s.markers)),
		Connections: make([]Connection, len(s.connections)),
	}
	copy(f.Markers, s.markers)
	copy(f.Connections, s.connections)
	return f
}

// LevelsFromDevice converts one slice of a device to channel levels on the
// 0-100 scale. A repeated channel keeps its last reading.
func LevelsFromDevice(d *telemetry.Device, slice int) map[int]float64 {
	levels := make(map[int]float64)
	if d == nil || slice < 0 || slice >= telemetry.SliceCount {
		return levels
	}
	for _, s := range d.Slices[slice] {
		levels[s.Channel] = s.Activity * 100
	}
	return levels
}
