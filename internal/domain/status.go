package domain

import "fmt"

// Status is the outcome of a batch and the state of an import session.
// Only Finished and Error are terminal for the session.
type Status int

const (
	StatusContinue Status = iota
	StatusFinished
	StatusError
)

// String returns the wire name of the status
func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further batches may run for the session
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusContinue, StatusFinished, StatusError:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown status %d", int(s))
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a wire status name
func ParseStatus(v string) (Status, error) {
	switch v {
	case "continue", "":
		return StatusContinue, nil
	case "finished":
		return StatusFinished, nil
	case "error":
		return StatusError, nil
	}
	return StatusContinue, fmt.Errorf("unknown status %q", v)
}
