package domain

import "time"

// TableStat is a post-import statistics row for one table
type TableStat struct {
	Name   string  `json:"name"`
	Rows   int64   `json:"rows"`
	SizeMB float64 `json:"size_mb"`
}

// BatchResult is what one bounded batch hands back to its caller
type BatchResult struct {
	Checkpoint ImportCheckpoint

	// Percent is advisory only and never used for control decisions
	Percent float64

	// Log holds short interactive diagnostics produced by this batch, in order
	Log []string

	// LogFile is the base name of the session log file
	LogFile string

	LinesRead          int64
	StatementsExecuted int64
	ErrorsThisBatch    int64
	NonFatalThisBatch  int64
	Duration           time.Duration

	// TableStats is only populated when the session finished
	TableStats []TableStat
}

// Status is a shortcut for the checkpoint status
func (r *BatchResult) Status() Status {
	return r.Checkpoint.Status
}
