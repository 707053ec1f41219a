package identifier

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a point on one of the two time axes. It has microsecond
// precision, which is what PostgreSQL stores, so a value read back from the
// database compares equal to the value that was written.
//
// The zero value means "not set" and is used for unbounded interval ends and
// for optional timestamps passed to the write path.
type Timestamp struct {
	micros int64
	set    bool
}

// NewTimestamp truncates t to microseconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{micros: t.UnixMicro(), set: true}
}

func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool {
	return !t.set
}

// Time returns the timestamp in UTC. An unset timestamp yields time.Time{}.
func (t Timestamp) Time() time.Time {
	if !t.set {
		return time.Time{}
	}
	return time.UnixMicro(t.micros).UTC()
}

// Compare returns -1, 0 or +1. Unset timestamps sort after every set one.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.set && !o.set:
		return -1
	case !t.set && o.set:
		return 1
	case t.micros < o.micros:
		return -1
	case t.micros > o.micros:
		return 1
	default:
		return 0
	}
}

func (t Timestamp) Before(o Timestamp) bool {
	return t.Compare(o) < 0
}

func (t Timestamp) String() string {
	if !t.set {
		return "unbounded"
	}
	return t.Time().Format(time.RFC3339Nano)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = NewTimestamp(parsed)
	return nil
}

// Timespan is the half-open interval [Start, End). An unset End means the
// interval is unbounded.
type Timespan struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

func NewTimespan(start, end Timestamp) Timespan {
	return Timespan{Start: start, End: end}
}

// Unbounded reports whether the interval has no upper bound.
func (s Timespan) Unbounded() bool {
	return s.End.IsZero()
}

func (s Timespan) Contains(t Timestamp) bool {
	if t.IsZero() || t.Before(s.Start) {
		return false
	}
	return s.Unbounded() || t.Before(s.End)
}

func (s Timespan) Overlaps(o Timespan) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

func (s Timespan) String() string {
	return fmt.Sprintf("[%s, %s)", s.Start, s.End)
}

// DecisionTimespan is the interval during which an asserted fact holds.
type DecisionTimespan struct {
	Timespan
}

// TransactionTimespan is the interval during which a record was the current
// knowledge of the store.
type TransactionTimespan struct {
	Timespan
}

func NewDecisionTimespan(start, end Timestamp) DecisionTimespan {
	return DecisionTimespan{Timespan: NewTimespan(start, end)}
}

func NewTransactionTimespan(start, end Timestamp) TransactionTimespan {
	return TransactionTimespan{Timespan: NewTimespan(start, end)}
}
