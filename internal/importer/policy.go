package importer

import (
	"fmt"
	"strings"
)

// Severity tells whether a failed statement counts as an import error
type Severity int

const (
	// Fatal failures are counted and reported interactively
	Fatal Severity = iota
	// NonFatal failures mean the object or row already exists; they are only written to the session log
	NonFatal
)

func (s Severity) String() string {
	if s == NonFatal {
		return "non-fatal"
	}
	return "fatal"
}

// ErrorPolicy classifies a MySQL error number. Code 0 stands for an error
// that carried no server error number.
type ErrorPolicy interface {
	Classify(code uint16) Severity
}

// CodeSetPolicy treats a fixed set of error numbers as non-fatal
type CodeSetPolicy struct {
	codes map[uint16]struct{}
}

// NewCodeSetPolicy builds a policy from non-fatal error numbers
func NewCodeSetPolicy(codes ...uint16) *CodeSetPolicy {
	set := make(map[uint16]struct{}, len(codes))
	for _, c := range codes {
		if c != 0 {
			set[c] = struct{}{}
		}
	}
	return &CodeSetPolicy{codes: set}
}

// Classify implements ErrorPolicy
func (p *CodeSetPolicy) Classify(code uint16) Severity {
	if _, ok := p.codes[code]; ok {
		return NonFatal
	}
	return Fatal
}

// TruncatedPolicy decides what happens to a statement left unterminated at end of stream
type TruncatedPolicy int

const (
	// TruncatedReport logs the dropped statement and counts it as an error
	TruncatedReport TruncatedPolicy = iota
	// TruncatedSilent drops it without a trace
	TruncatedSilent
)

// ParseTruncatedPolicy parses "report" or "silent"
func ParseTruncatedPolicy(v string) (TruncatedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "report":
		return TruncatedReport, nil
	case "silent":
		return TruncatedSilent, nil
	}
	return TruncatedReport, fmt.Errorf("unknown truncated statement policy %q", v)
}
