package docstore

import (
	"bytes"
	"context"
	"time"
)

const DefaultPollInterval = 2 * time.Second

// Poll implements Listen for stores without change notifications: it runs query every
// interval and calls fn when the result differs from the previous one.
func Poll(ctx context.Context, interval time.Duration, query func(ctx context.Context) ([]Doc, error), fn func([]Doc)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []Doc
	first := true
	for {
		docs, err := query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if first || !SameDocs(last, docs) {
			first = false
			last = docs
			fn(docs)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SameDocs reports whether two results hold the same documents in the same order.
func SameDocs(a, b []Doc) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !bytes.Equal(a[i].Data, b[i].Data) {
			return false
		}
	}
	return true
}
