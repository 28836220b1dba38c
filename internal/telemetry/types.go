package telemetry

import "time"

const (
	// SliceCount is the number of time slices each channel reports.
	SliceCount = 5

	// MaxDevice is the highest accepted device index.
	MaxDevice = 11
)

// Scheme selects the field layout of a telemetry line.
type Scheme string

const (
	// SchemeBasic lines carry device, channel, five activity readings,
	// a frequency and a single phase.
	SchemeBasic Scheme = "basic"
	// SchemePhased lines carry device, channel, five activity readings,
	// a frequency and one phase per slice.
	SchemePhased Scheme = "phased"
)

// MinFields returns the minimum number of comma-separated fields a data
// line must have under the scheme.
func (s Scheme) MinFields() int {
	if s == SchemePhased {
		return 12
	}
	return 9
}

// Valid reports whether s is a known scheme.
func (s Scheme) Valid() bool {
	return s == SchemeBasic || s == SchemePhased
}

// ChannelSample is one channel's reading for one time slice.
type ChannelSample struct {
	Device    int     `json:"device"`
	Channel   int     `json:"channel"`
	Activity  float64 `json:"activity"`
	Frequency float64 `json:"frequency"`
	Phase     float64 `json:"phase"`
}

// Slice holds the samples of one time slice in input order.
type Slice []ChannelSample

// Device aggregates every channel reported for one device index.
type Device struct {
	ID             int               `json:"device_id"`
	Slices         [SliceCount]Slice `json:"time_slices"`
	IsActive       bool              `json:"is_active"`
	ActiveChannels int               `json:"active_channels"`
}

// Activity returns the activity values of the given slice.
func (d *Device) Activity(slice int) []float64 {
	if slice < 0 || slice >= SliceCount {
		return nil
	}
	out := make([]float64, len(d.Slices[slice]))
	for i, s := range d.Slices[slice] {
		out[i] = s.Activity
	}
	return out
}

// SkipReason explains why a line was dropped.
type SkipReason string

const (
	SkipShort       SkipReason = "short"
	SkipDeviceRange SkipReason = "device_range"
	SkipBadNumber   SkipReason = "bad_number"
)

// SkippedLine records a dropped data line.
type SkippedLine struct {
	Line   int        `json:"line"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Report summarizes a parse.
type Report struct {
	Lines   int           `json:"lines"`
	Records int           `json:"records"`
	Skipped []SkippedLine `json:"skipped"`
}

// Snapshot is the result of parsing one telemetry source.
type Snapshot struct {
	Source   string    `json:"source"`
	Scheme   Scheme    `json:"scheme"`
	Devices  []*Device `json:"devices"`
	Report   Report    `json:"report"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Device returns the device with the given id, or nil.
func (s *Snapshot) Device(id int) *Device {
	for _, d := range s.Devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// ActiveDevices counts devices with IsActive set.
func (s *Snapshot) ActiveDevices() int {
	n := 0
	for _, d := range s.Devices {
		if d.IsActive {
			n++
		}
	}
	return n
}
