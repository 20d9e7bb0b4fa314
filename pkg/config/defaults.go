package config

import "time"

// Repository defaults.
const (
	DefaultRepoPath  = "."
	DefaultUntracked = ""
)

// Job defaults. Zero workers selects asyncjob.DefaultWorkers.
const (
	DefaultWorkers      = 0
	DefaultNotifyBuffer = 64
	DefaultTick         = 500 * time.Millisecond
)

// Logging defaults.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 14
)
