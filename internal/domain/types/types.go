// Package types contains common types used across the application
package types

import "time"

// SessionStatus is the recorder's state as seen by an operator.
type SessionStatus struct {
	State    string   `json:"state"`
	Frames   int      `json:"frames"`
	Rows     int      `json:"rows"`
	Controls []string `json:"controls"`
}

// SaveRequest names the recording to save.
type SaveRequest struct {
	Name string `json:"name"`
}

// SaveResult reports where a recording was written.
type SaveResult struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Frames    int    `json:"frames"`
	Rows      int    `json:"rows"`
	Bytes     int64  `json:"bytes"`
	ArchiveID string `json:"archive_id,omitempty"`
}

// PoseAck answers a pose submission.
type PoseAck struct {
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate,omitempty"`
	State     string `json:"state"`
	Frames    int    `json:"frames"`
}

// RecordingInfo describes a saved recording.
type RecordingInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}
