package audit

import "time"

// Revision records one configuration save.
type Revision struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Size       int       `json:"size"`
	Checksum   string    `json:"checksum"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SnapshotSummary records one telemetry reload.
type SnapshotSummary struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Scheme        string    `json:"scheme"`
	Devices       int       `json:"devices"`
	ActiveDevices int       `json:"active_devices"`
	Records       int       `json:"records"`
	Skipped       int       `json:"skipped"`
	LoadedAt      time.Time `json:"loaded_at"`
}

// timeLayout is how timestamps are stored. Millisecond precision keeps
// ordering stable for saves in the same second.
const timeLayout = "2006-01-02 15:04:05.000"
