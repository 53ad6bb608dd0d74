package domain

import "time"

// ImportProgress is a per-batch progress record mirrored to external monitoring
type ImportProgress struct {
	Timestamp     time.Time
	SessionID     string
	FilePath      string
	FileName      string
	Status        string
	OffsetBytes   uint64
	FileSizeBytes uint64 // 0 when unknown (gzip)
	LineNumber    uint64
	Percent       float64

	StatementsTotal uint64
	ErrorsTotal     uint64

	BatchLines      uint64
	BatchStatements uint64
	BatchErrors     uint64
	BatchNonFatal   uint64
	BatchDurationMs uint64
}
