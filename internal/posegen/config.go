package posegen

import "time"

// Config holds configuration for a replay run.
type Config struct {
	BaseURL        string        // Base URL of the recorder
	Frames         int           // Number of frames to stream
	Rate           float64       // Frames per second of the synthetic take
	Name           string        // Recording name; empty generates one
	Realtime       bool          // Pace frames at Rate instead of sending flat out
	DuplicateEvery int           // Resend every Nth frame to exercise deduplication; 0 disables
	Timeout        time.Duration // HTTP request timeout
	OutputFile     string        // Optional JSON dump of the generated poses
	Keep           bool          // Keep the recording after verification
	Verbose        bool          // Log every acknowledgement
}

// Stats holds replay statistics.
type Stats struct {
	FramesGenerated int
	FramesSent      int
	FramesAccepted  int
	Duplicates      int
	Failed          int
	RowsWritten     int
	BytesWritten    int64
	Path            string
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
