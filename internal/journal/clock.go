package journal

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock stamps entries with strictly increasing sequence numbers.
type Clock interface {
	Next() int64
}

// IDGenerator produces entry ids.
type IDGenerator interface {
	Generate() string
}

// SeqClock is a monotonic logical clock. It is safe for concurrent use.
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClockAt returns a clock whose first Next returns start+1. A journal
// resumes its clock at the last stored seq.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// UUIDv7Generator generates time-sortable UUIDv7 entry ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. It panics if the random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
