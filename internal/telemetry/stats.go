package telemetry

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SyncLevel labels how closely two paired devices track each other.
type SyncLevel string

const (
	SyncHigh   SyncLevel = "High"
	SyncMedium SyncLevel = "Medium"
	SyncLow    SyncLevel = "Low"
	SyncNone   SyncLevel = "N/A"
)

// Synchronization thresholds on the absolute difference of average activity.
const (
	syncHighBelow   = 0.1
	syncMediumBelow = 0.3
)

// IsActive reports whether any channel in any slice has activity above zero.
func IsActive(d *Device) bool {
	for _, slice := range d.Slices {
		for _, s := range slice {
			if s.Activity > 0 {
				return true
			}
		}
	}
	return false
}

// ActiveChannels counts distinct channel ids with activity above zero in at
// least one slice.
func ActiveChannels(d *Device) int {
	seen := make(map[int]struct{})
	for _, slice := range d.Slices {
		for _, s := range slice {
			if s.Activity > 0 {
				seen[s.Channel] = struct{}{}
			}
		}
	}
	return len(seen)
}

// AverageActivity is the mean channel activity of one slice. An empty slice
// averages to zero.
func AverageActivity(d *Device, slice int) float64 {
	values := d.Activity(slice)
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// SyncLevelFor labels an average-activity difference.
func SyncLevelFor(diff float64) SyncLevel {
	diff = math.Abs(diff)
	switch {
	case diff < syncHighBelow:
		return SyncHigh
	case diff < syncMediumBelow:
		return SyncMedium
	default:
		return SyncLow
	}
}

// Pair groups two devices for comparison. Second is nil for a trailing
// unpaired device.
type Pair struct {
	First         *Device   `json:"first"`
	Second        *Device   `json:"second"`
	FirstAverage  float64   `json:"first_average"`
	SecondAverage float64   `json:"second_average"`
	Average       float64   `json:"average"`
	Difference    float64   `json:"difference"`
	Sync          SyncLevel `json:"sync"`
}

// Pairs groups devices two at a time in the given order and computes the
// statistics of each pair for one slice.
func Pairs(devices []*Device, slice int) []Pair {
	pairs := make([]Pair, 0, (len(devices)+1)/2)
	for i := 0; i < len(devices); i += 2 {
		p := Pair{First: devices[i]}
		p.FirstAverage = AverageActivity(p.First, slice)

		if i+1 >= len(devices) {
			p.Average = p.FirstAverage
			p.Sync = SyncNone
			pairs = append(pairs, p)
			continue
		}

		p.Second = devices[i+1]
		p.SecondAverage = AverageActivity(p.Second, slice)
		p.Average = (p.FirstAverage + p.SecondAverage) / 2
		p.Difference = math.Abs(p.FirstAverage - p.SecondAverage)
		p.Sync = SyncLevelFor(p.Difference)
		pairs = append(pairs, p)
	}
	return pairs
}
