package cache

import (
	"context"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/schema"
)

// View is the read access processors get to the records visible to the
// running batch. Under the buffer it includes staged changes.
type View interface {
	Record(id ir.RecordIdentity) (*ir.Record, bool)
	Referrers(id ir.RecordIdentity) []Reference
}

// Change describes one applied operation.
type Change struct {
	Operation ir.Operation

	// Before is the record prior to the operation; nil when it was created.
	Before *ir.Record

	// After is the record after the operation; nil when it was removed.
	After *ir.Record
}

// Processor takes part in every operation of a batch.
//
// Validate runs before an operation is applied and aborts the batch on
// error. After runs once the operation has been applied and returns
// synthetic operations, which the engine processes before the rest of the
// batch. Records reachable from the view and the change belong to the cache
// and must not be modified.
type Processor interface {
	Validate(ctx context.Context, view View, op ir.Operation) error
	After(ctx context.Context, view View, change Change) ([]ir.Operation, error)
}

// DefaultProcessors returns the schema validation and relationship
// integrity processors, in that order.
func DefaultProcessors(s *schema.Schema) []Processor {
	return []Processor{
		NewValidationProcessor(s),
		NewIntegrityProcessor(s),
	}
}
