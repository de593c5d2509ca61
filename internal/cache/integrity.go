package cache

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/schema"
)

// IntegrityProcessor keeps both sides of every relationship with an
// inverse in step, cascades dependent removals and clears links to removed
// records.
//
// It only emits operations for the delta an operation caused: a link added
// on one side is added on the other, a link dropped on one side is dropped
// on the other. The engine skips operations that change nothing, so the
// mirrored operations come back as no-ops and the exchange terminates.
type IntegrityProcessor struct {
	schema *schema.Schema
}

// NewIntegrityProcessor returns an IntegrityProcessor for s.
func NewIntegrityProcessor(s *schema.Schema) *IntegrityProcessor {
	return &IntegrityProcessor{schema: s}
}

// Validate implements Processor. Integrity has nothing to reject.
func (p *IntegrityProcessor) Validate(context.Context, View, ir.Operation) error {
	return nil
}

// After implements Processor.
func (p *IntegrityProcessor) After(_ context.Context, view View, change Change) ([]ir.Operation, error) {
	switch o := change.Operation.(type) {
	case ir.AddRecord:
		return p.recordLinks(view, change, &o.Record), nil
	case ir.UpdateRecord:
		return p.recordLinks(view, change, &o.Record), nil
	case ir.RemoveRecord:
		return p.removal(view, change.Before), nil
	case ir.AddToRelatedRecords, ir.RemoveFromRelatedRecords, ir.ReplaceRelatedRecords, ir.ReplaceRelatedRecord:
		name := ir.RelationshipName(o)
		return p.inverseOps(view, change.Operation.Target(), name, related(change.Before, name), related(change.After, name)), nil
	}
	return nil, nil
}

// recordLinks mirrors the relationships present in an addRecord or
// updateRecord payload. Relationships the payload omits are untouched.
func (p *IntegrityProcessor) recordLinks(view View, change Change, payload *ir.Record) []ir.Operation {
	var ops []ir.Operation
	for _, name := range slices.Sorted(maps.Keys(payload.Relationships)) {
		ops = append(ops, p.inverseOps(view, payload.Identity(), name, related(change.Before, name), related(change.After, name))...)
	}
	return ops
}

// inverseOps returns the operations that mirror a change of self's
// relationship from prev to next on the inverse side.
func (p *IntegrityProcessor) inverseOps(view View, self ir.RecordIdentity, name string, prev, next []ir.RecordIdentity) []ir.Operation {
	def, ok := p.schema.Relationship(self.Type, name)
	if !ok || def.Inverse == "" {
		return nil
	}
	added, removed := ir.IdentityDiff(prev, next)

	var ops []ir.Operation
	for _, target := range removed {
		inv, ok := p.schema.Inverse(self.Type, name, target.Type)
		if !ok {
			continue
		}
		if inv.Kind == schema.HasMany {
			ops = append(ops, ir.RemoveFromRelatedRecords{Record: target, Relationship: def.Inverse, RelatedRecord: self})
			continue
		}
		// A to-one inverse may already point elsewhere; only clear it when it
		// still points here.
		if r, ok := view.Record(target); ok {
			if rel, ok := r.Relationship(def.Inverse); ok && rel.One != nil && *rel.One == self {
				ops = append(ops, ir.ReplaceRelatedRecord{Record: target, Relationship: def.Inverse})
			}
		}
	}
	for _, target := range added {
		inv, ok := p.schema.Inverse(self.Type, name, target.Type)
		if !ok {
			continue
		}
		if inv.Kind == schema.HasMany {
			ops = append(ops, ir.AddToRelatedRecords{Record: target, Relationship: def.Inverse, RelatedRecord: self})
		} else {
			ref := self
			ops = append(ops, ir.ReplaceRelatedRecord{Record: target, Relationship: def.Inverse, RelatedRecord: &ref})
		}
	}
	return ops
}

// removal cascades dependent removals, then clears every remaining link to
// the removed record.
func (p *IntegrityProcessor) removal(view View, removed *ir.Record) []ir.Operation {
	if removed == nil {
		return nil
	}
	var ops []ir.Operation
	for _, name := range slices.Sorted(maps.Keys(removed.Relationships)) {
		def, ok := p.schema.Relationship(removed.Type, name)
		if !ok || !def.IsDependent() {
			continue
		}
		for _, id := range removed.Relationships[name].Identities() {
			ops = append(ops, ir.RemoveRecord{Record: id})
		}
	}

	self := removed.Identity()
	for _, ref := range view.Referrers(self) {
		if ref.Record == self {
			continue
		}
		if p.toMany(view, ref) {
			ops = append(ops, ir.RemoveFromRelatedRecords{Record: ref.Record, Relationship: ref.Relationship, RelatedRecord: self})
		} else {
			ops = append(ops, ir.ReplaceRelatedRecord{Record: ref.Record, Relationship: ref.Relationship})
		}
	}
	return ops
}

// toMany reports the cardinality of a referring relationship, from the
// schema when declared, else from the stored value.
func (p *IntegrityProcessor) toMany(view View, ref Reference) bool {
	if def, ok := p.schema.Relationship(ref.Record.Type, ref.Relationship); ok {
		return def.Kind == schema.HasMany
	}
	if r, ok := view.Record(ref.Record); ok {
		rel, _ := r.Relationship(ref.Relationship)
		return rel.ToMany
	}
	return false
}

// related returns the identities r's relationship holds; nil for a nil
// record or an absent relationship.
func related(r *ir.Record, name string) []ir.RecordIdentity {
	if r == nil {
		return nil
	}
	rel, _ := r.Relationship(name)
	return rel.Identities()
}
