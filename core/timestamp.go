package core

import (
	"bytes"
	"strconv"
	"time"
)

// Timestamp is a point in time stored as unix milliseconds so that every store can range-filter on it.
// The zero Timestamp is stored as null.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{time.UnixMilli(t.UnixMilli()).UTC()}
}

func Now() Timestamp { return NewTimestamp(time.Now()) }

// Millis returns the stored representation of ts.
func (ts Timestamp) Millis() int64 {
	return ts.UnixMilli()
}

func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.Time.Equal(other.Time)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(ts.Millis(), 10)), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*ts = Timestamp{time.UnixMilli(ms).UTC()}
	return nil
}

// TimeRange is a pair of bounds used by range queries.
type TimeRange struct {
	From Timestamp
	To   Timestamp
}
