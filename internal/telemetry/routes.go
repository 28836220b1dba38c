package telemetry

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/neurosphere/internal/api"
)

// Files names the telemetry sources served over HTTP.
type Files struct {
	Devices string // basic scheme
	Phases  string // phased scheme
}

// PairView is the JSON form of a Pair. SecondID is nil for an unpaired device.
type PairView struct {
	FirstID       int       `json:"first_device"`
	SecondID      *int      `json:"second_device"`
	FirstAverage  float64   `json:"first_average"`
	SecondAverage float64   `json:"second_average"`
	Average       float64   `json:"average"`
	Difference    float64   `json:"difference"`
	Sync          SyncLevel `json:"sync"`
}

// ViewPairs flattens pairs for serialization.
func ViewPairs(pairs []Pair) []PairView {
	out := make([]PairView, len(pairs))
	for i, p := range pairs {
		out[i] = PairView{
			FirstID:       p.First.ID,
			FirstAverage:  p.FirstAverage,
			SecondAverage: p.SecondAverage,
			Average:       p.Average,
			Difference:    p.Difference,
			Sync:          p.Sync,
		}
		if p.Second != nil {
			id := p.Second.ID
			out[i].SecondID = &id
		}
	}
	return out
}

// RegisterRoutes mounts the device, phase and pair endpoints. Each request
// parses the file afresh.
func RegisterRoutes(r chi.Router, files Files) {
	r.Get("/api/devices", handleDevices(files.Devices, SchemeBasic))
	r.Get("/api/phase-data", handleDevices(files.Phases, SchemePhased))
	r.Get("/api/pairs", handlePairs(files.Devices))
}

func handleDevices(path string, scheme Scheme) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := load(w, path, scheme)
		if !ok {
			return
		}
		devices := snap.Devices
		if devices == nil {
			devices = []*Device{}
		}
		api.WriteJSON(w, http.StatusOK, devices)
	}
}

func handlePairs(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slice := 0
		if v := r.URL.Query().Get("slice"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n >= SliceCount {
				api.WriteError(w, http.StatusBadRequest, "slice must be an integer from 0 to 4")
				return
			}
			slice = n
		}

		snap, ok := load(w, path, SchemeBasic)
		if !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, ViewPairs(Pairs(snap.Devices, slice)))
	}
}

func load(w http.ResponseWriter, path string, scheme Scheme) (*Snapshot, bool) {
	if path == "" {
		api.WriteError(w, http.StatusNotFound, "telemetry source not configured")
		return nil, false
	}
	snap, err := ParseFile(path, scheme)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			api.WriteError(w, http.StatusNotFound, "telemetry file not found")
			return nil, false
		}
		api.WriteError(w, http.StatusInternalServerError, "failed to read telemetry")
		return nil, false
	}
	return snap, true
}
