package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// field offsets within a data line.
const (
	fieldDevice    = 0
	fieldChannel   = 1
	fieldActivity  = 2
	fieldFrequency = fieldActivity + SliceCount
	fieldPhase     = fieldFrequency + 1
)

// Parse reads comma-separated telemetry from r and aggregates it per device.
//
// Comment lines (leading '#') and blank lines are ignored. Data lines that
// are too short, name a device outside [0, MaxDevice], or carry a value
// that is not a finite number are skipped and listed in the report. Devices
// keep the order in which their index was first seen.
func Parse(r io.Reader, scheme Scheme) (*Snapshot, error) {
	if !scheme.Valid() {
		return nil, fmt.Errorf("unknown scheme %q", scheme)
	}

	snap := &Snapshot{
		Scheme:   scheme,
		Devices:  []*Device{},
		LoadedAt: time.Now().UTC(),
		Report:   Report{Skipped: []SkippedLine{}},
	}
	byID := make(map[int]*Device)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		snap.Report.Lines++

		samples, skip := parseLine(line, scheme)
		if skip != nil {
			skip.Line = lineNo
			snap.Report.Skipped = append(snap.Report.Skipped, *skip)
			continue
		}

		dev, ok := byID[samples[0].Device]
		if !ok {
			dev = newDevice(samples[0].Device)
			byID[dev.ID] = dev
			snap.Devices = append(snap.Devices, dev)
		}
		for i, s := range samples {
			dev.Slices[i] = append(dev.Slices[i], s)
		}
		snap.Report.Records++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading telemetry: %w", err)
	}

	for _, d := range snap.Devices {
		d.IsActive = IsActive(d)
		d.ActiveChannels = ActiveChannels(d)
	}
	return snap, nil
}

// ParseFile opens path and parses it with the given scheme.
func ParseFile(path string, scheme Scheme) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry %s: %w", path, err)
	}
	defer f.Close()

	snap, err := Parse(f, scheme)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	snap.Source = path
	return snap, nil
}

func newDevice(id int) *Device {
	d := &Device{ID: id}
	for i := range d.Slices {
		d.Slices[i] = Slice{}
	}
	return d
}

// parseLine turns one data line into a sample per slice.
func parseLine(line string, scheme Scheme) ([SliceCount]ChannelSample, *SkippedLine) {
	var out [SliceCount]ChannelSample

	fields := strings.Split(line, ",")
	if len(fields) < scheme.MinFields() {
		return out, &SkippedLine{
			Reason: SkipShort,
			Detail: fmt.Sprintf("%d fields, need %d", len(fields), scheme.MinFields()),
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	device, err := strconv.Atoi(fields[fieldDevice])
	if err != nil {
		return out, badNumber("device", fields[fieldDevice])
	}
	if device < 0 || device > MaxDevice {
		return out, &SkippedLine{Reason: SkipDeviceRange, Detail: strconv.Itoa(device)}
	}
	channel, err := strconv.Atoi(fields[fieldChannel])
	if err != nil {
		return out, badNumber("channel", fields[fieldChannel])
	}

	freq, ok := parseFinite(fields[fieldFrequency])
	if !ok {
		return out, badNumber("frequency", fields[fieldFrequency])
	}

	phases, skip := parsePhases(fields, scheme)
	if skip != nil {
		return out, skip
	}

	for i := 0; i < SliceCount; i++ {
		raw := fields[fieldActivity+i]
		act, ok := parseFinite(raw)
		if !ok {
			return out, badNumber(fmt.Sprintf("activity[%d]", i), raw)
		}
		out[i] = ChannelSample{
			Device:    device,
			Channel:   channel,
			Activity:  act,
			Frequency: freq,
			Phase:     phases[i],
		}
	}
	return out, nil
}

// parsePhases returns the phase for each slice. Basic lines share one phase;
// phased lines carry one per slice and repeat the last one present when the
// line is shorter than a full set.
func parsePhases(fields []string, scheme Scheme) ([SliceCount]float64, *SkippedLine) {
	var phases [SliceCount]float64

	present := 1
	if scheme == SchemePhased {
		present = min(len(fields)-fieldPhase, SliceCount)
	}

	for i := 0; i < SliceCount; i++ {
		if i >= present {
			phases[i] = phases[present-1]
			continue
		}
		raw := fields[fieldPhase+i]
		v, ok := parseFinite(raw)
		if !ok {
			return phases, badNumber(fmt.Sprintf("phase[%d]", i), raw)
		}
		phases[i] = v
	}
	return phases, nil
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func badNumber(field, raw string) *SkippedLine {
	return &SkippedLine{Reason: SkipBadNumber, Detail: fmt.Sprintf("%s=%q", field, raw)}
}
