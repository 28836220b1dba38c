package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/neurosphere/internal/scene"
	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

// load parses the file for scheme. The returned message is set when the
// caller should answer with a tool error.
func (s *Server) load(scheme telemetry.Scheme) (*telemetry.Snapshot, string) {
	path := s.files.Devices
	if scheme == telemetry.SchemePhased {
		path = s.files.Phases
	}
	if path == "" {
		return nil, fmt.Sprintf("no %s telemetry file is configured", scheme)
	}
	snap, err := telemetry.ParseFile(path, scheme)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Sprintf("telemetry file %s does not exist", path)
		}
		return nil, fmt.Sprintf("failed to read telemetry: %v", err)
	}
	return snap, ""
}

func schemeArg(request mcp.CallToolRequest) (telemetry.Scheme, string) {
	scheme := telemetry.Scheme(request.GetString("scheme", string(telemetry.SchemeBasic)))
	if !scheme.Valid() {
		return "", fmt.Sprintf("unknown scheme %q", scheme)
	}
	return scheme, ""
}

func sliceArg(request mcp.CallToolRequest) (int, string) {
	slice := request.GetInt("slice", 0)
	if slice < 0 || slice >= telemetry.SliceCount {
		return 0, fmt.Sprintf("slice must be between 0 and %d", telemetry.SliceCount-1)
	}
	return slice, ""
}

// handleListDevices summarizes every device in the file.
func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scheme, msg := schemeArg(request)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}
	snap, msg := s.load(scheme)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}
	if len(snap.Devices) == 0 {
		return mcp.NewToolResultText("No devices found in the telemetry file."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d devices (%d active)\n\n", len(snap.Devices), snap.ActiveDevices())
	for _, d := range snap.Devices {
		status := "inactive"
		if d.IsActive {
			status = "active"
		}
		fmt.Fprintf(&b, "Device %d: %s, %d active channels, averages", d.ID, status, d.ActiveChannels)
		for i := 0; i < telemetry.SliceCount; i++ {
			fmt.Fprintf(&b, " %.3f", telemetry.AverageActivity(d, i))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleGetPairStats reports synchronization between consecutive devices.
func (s *Server) handleGetPairStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slice, msg := sliceArg(request)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}
	snap, msg := s.load(telemetry.SchemeBasic)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}

	pairs := telemetry.Pairs(snap.Devices, slice)
	if len(pairs) == 0 {
		return mcp.NewToolResultText("No devices found in the telemetry file."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pair statistics for slice %d\n\n", slice)
	for _, p := range pairs {
		if p.Second == nil {
			fmt.Fprintf(&b, "Device %d (unpaired): average %.3f, sync %s\n", p.First.ID, p.Average, p.Sync)
			continue
		}
		fmt.Fprintf(&b, "Devices %d and %d: average %.3f, difference %.3f, sync %s\n",
			p.First.ID, p.Second.ID, p.Average, p.Difference, p.Sync)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// sceneSummary is the get_scene payload: only lit markers are listed.
type sceneSummary struct {
	Device      int                `json:"device"`
	Slice       int                `json:"slice"`
	Markers     []scene.Marker     `json:"markers"`
	Connections []scene.Connection `json:"connections"`
}

// handleGetScene computes a scene frame for one device and slice.
func (s *Server) handleGetScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slice, msg := sliceArg(request)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}
	snap, msg := s.load(telemetry.SchemeBasic)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}
	if len(snap.Devices) == 0 {
		return mcp.NewToolResultError("no devices found in the telemetry file"), nil
	}

	dev := snap.Devices[0]
	if id := request.GetInt("device", -1); id >= 0 {
		dev = snap.Device(id)
		if dev == nil {
			return mcp.NewToolResultError(fmt.Sprintf("device %d not found", id)), nil
		}
	}

	frame := scene.NewState(1).Update(scene.LevelsFromDevice(dev, slice))
	out := sceneSummary{Device: dev.ID, Slice: slice, Markers: []scene.Marker{}, Connections: frame.Connections}
	for _, m := range frame.Markers {
		if m.Level > 0 {
			out.Markers = append(out.Markers, m)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding scene: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleGetParseReport lists the lines the parser skipped.
func (s *Server) handleGetParseReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scheme, msg := schemeArg(request)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}
	snap, msg := s.load(scheme)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}

	r := snap.Report
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d lines, %d records, %d skipped\n", snap.Source, r.Lines, r.Records, len(r.Skipped))
	for _, sk := range r.Skipped {
		fmt.Fprintf(&b, "  line %d: %s", sk.Line, sk.Reason)
		if sk.Detail != "" {
			fmt.Fprintf(&b, " (%s)", sk.Detail)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
