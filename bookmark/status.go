package bookmark

import "fmt"

// Status is the liveness state of a single bookmark during a check pass.
type Status int

const (
	// Pending means the bookmark has not been picked up by a check session.
	Pending Status = iota
	// Checking means a probe for the bookmark is in flight.
	Checking
	// Valid means the URL answered (or was skipped as local/intranet).
	Valid
	// Invalid means the URL is gone: DNS failure, refused connection and the like.
	Invalid
	// Timeout means every attempt timed out or failed transiently.
	Timeout

	statusCount
)

// StatusCount is the number of Status values. Lookup tables indexed by
// Status are declared with this length so a new value cannot be forgotten.
const StatusCount = int(statusCount)

var statusNames = [statusCount]string{
	Pending:  "pending",
	Checking: "checking",
	Valid:    "valid",
	Invalid:  "invalid",
	Timeout:  "timeout",
}

// Statuses returns every Status in declaration order.
func Statuses() []Status {
	all := make([]Status, 0, statusCount)
	for s := range statusCount {
		all = append(all, s)
	}
	return all
}

func (s Status) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool {
	return s >= Pending && s < statusCount
}

// Terminal reports whether s is a final check outcome.
func (s Status) Terminal() bool {
	return s == Valid || s == Invalid || s == Timeout
}

// Broken reports whether s should be offered for deletion.
func (s Status) Broken() bool {
	return s == Invalid || s == Timeout
}

// CanAdvance reports whether a record in status s may move to next.
// The only legal path is pending -> checking -> {valid, invalid, timeout}.
func (s Status) CanAdvance(next Status) bool {
	switch s {
	case Pending:
		return next == Checking
	case Checking:
		return next.Terminal()
	default:
		return false
	}
}

// ParseStatus converts a status name back to a Status.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return Status(s), nil
		}
	}
	return Pending, fmt.Errorf("unknown status %q", name)
}

// MarshalText implements encoding.TextMarshaler so statuses serialize by name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("marshal status: invalid value %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
