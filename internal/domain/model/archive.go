package model

import "time"

// ArchiveJob asks the archive pipeline to mirror one saved recording.
type ArchiveJob struct {
	ID      string    // unique job id
	Name    string    // recording name without extension
	Path    string    // local CSV path
	Rows    int       // data rows in the file
	SavedAt time.Time // when the export finished
}

// Location describes where an export landed.
type Location struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Frames int    `json:"frames"`
	Rows   int    `json:"rows"`
	Bytes  int64  `json:"bytes"`
}
