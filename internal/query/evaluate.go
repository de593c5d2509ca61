package query

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/recache/internal/ir"
)

// Source is the read side of a record store.
type Source interface {
	// Record returns the record with the given identity.
	Record(id ir.RecordIdentity) (*ir.Record, bool)
	// RecordsOfType returns every record of a type, ordered by id.
	RecordsOfType(typ string) []*ir.Record
}

// Evaluate answers expr against src. raise is the not-found policy to apply
// when the expression carries no override of its own.
//
// Returned records are the ones src hands out; callers that expose results
// beyond their own lifetime should Clone them.
func Evaluate(src Source, expr Expression, raise bool) (Result, error) {
	if o := expr.ExpressionOptions().RaiseNotFoundExceptions; o != nil {
		raise = *o
	}

	switch e := expr.(type) {
	case FindRecord:
		r, ok := src.Record(e.Record)
		if !ok {
			if raise {
				return Undefined, &ir.NotFoundError{Record: e.Record}
			}
			return Undefined, nil
		}
		return Result{Record: r, Defined: true}, nil

	case FindRecords:
		var candidates []*ir.Record
		if e.Type != "" {
			candidates = src.RecordsOfType(e.Type)
		} else {
			for _, id := range e.Records {
				r, ok := src.Record(id)
				if !ok {
					if raise {
						return Undefined, &ir.NotFoundError{Record: id}
					}
					continue
				}
				candidates = append(candidates, r)
			}
		}
		return Result{Records: selectRecords(candidates, e.Filter, e.Sort, e.Page), Many: true, Defined: true}, nil

	case FindRelatedRecord:
		r, ok := src.Record(e.Record)
		if !ok {
			if raise {
				return Undefined, &ir.NotFoundError{Record: e.Record, Relationship: e.Relationship}
			}
			return Undefined, nil
		}
		rel, _ := r.Relationship(e.Relationship)
		if rel.One == nil {
			return Result{Defined: true}, nil
		}
		related, _ := src.Record(*rel.One)
		return Result{Record: related, Defined: true}, nil

	case FindRelatedRecords:
		r, ok := src.Record(e.Record)
		if !ok {
			if raise {
				return Undefined, &ir.NotFoundError{Record: e.Record, Relationship: e.Relationship}
			}
			return Undefined, nil
		}
		rel, _ := r.Relationship(e.Relationship)
		candidates := make([]*ir.Record, 0, len(rel.Many))
		for _, id := range rel.Many {
			if related, ok := src.Record(id); ok {
				candidates = append(candidates, related)
			}
		}
		return Result{Records: selectRecords(candidates, e.Filter, e.Sort, e.Page), Many: true, Defined: true}, nil
	}
	return Undefined, fmt.Errorf("unknown expression type %T", expr)
}

// selectRecords applies filter, sort and page in that order. The result is
// never nil so an empty answer encodes as [].
func selectRecords(records []*ir.Record, filter []Predicate, sort []SortSpecifier, page *Page) []*ir.Record {
	out := make([]*ir.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, filter) {
			out = append(out, r)
		}
	}
	if len(sort) > 0 {
		slices.SortStableFunc(out, func(a, b *ir.Record) int {
			return compareRecords(a, b, sort)
		})
	}
	if page != nil {
		out = applyPage(out, *page)
	}
	return out
}

// Matches reports whether r satisfies every predicate.
func Matches(r *ir.Record, filter []Predicate) bool {
	for _, p := range filter {
		if !matchPredicate(r, p) {
			return false
		}
	}
	return true
}

func matchPredicate(r *ir.Record, p Predicate) bool {
	switch pred := p.(type) {
	case AttributeFilter:
		return matchAttribute(r, pred)
	case RelatedRecordFilter:
		rel, _ := r.Relationship(pred.Relationship)
		if rel.One == nil {
			return pred.Null
		}
		return slices.Contains(pred.Records, *rel.One)
	case RelatedRecordsFilter:
		rel, _ := r.Relationship(pred.Relationship)
		return matchSet(rel.Identities(), pred.Op, pred.Records)
	}
	return false
}

func matchAttribute(r *ir.Record, f AttributeFilter) bool {
	actual, ok := r.Attribute(f.Attribute)
	missing := !ok || ir.IsNull(actual)

	if f.Op == OpEqual {
		if ir.IsNull(f.Value) {
			return missing
		}
		return !missing && ir.Equal(actual, f.Value)
	}
	if missing || ir.IsNull(f.Value) || reflect.TypeOf(actual) != reflect.TypeOf(f.Value) {
		return false
	}
	c := ir.Compare(actual, f.Value)
	switch f.Op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

func matchSet(members []ir.RecordIdentity, op SetOp, want []ir.RecordIdentity) bool {
	switch op {
	case SetEqual:
		return ir.SameIdentitySet(members, want)
	case SetAll:
		for _, id := range want {
			if !slices.Contains(members, id) {
				return false
			}
		}
		return true
	case SetSome:
		for _, id := range want {
			if slices.Contains(members, id) {
				return true
			}
		}
		return false
	case SetNone:
		for _, id := range want {
			if slices.Contains(members, id) {
				return false
			}
		}
		return true
	}
	return false
}

// compareRecords orders two records by the sort keys in turn. Missing and
// null values sort last in either direction.
func compareRecords(a, b *ir.Record, sort []SortSpecifier) int {
	for _, spec := range sort {
		av, aok := a.Attribute(spec.Attribute)
		bv, bok := b.Attribute(spec.Attribute)
		aMissing := !aok || ir.IsNull(av)
		bMissing := !bok || ir.IsNull(bv)

		var c int
		switch {
		case aMissing && bMissing:
			c = 0
		case aMissing:
			return 1
		case bMissing:
			return -1
		default:
			c = ir.Compare(av, bv)
			if spec.Order == Descending {
				c = -c
			}
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func applyPage(records []*ir.Record, p Page) []*ir.Record {
	if p.Offset >= len(records) {
		return records[:0]
	}
	records = records[max(p.Offset, 0):]
	if p.Limit > 0 && p.Limit < len(records) {
		records = records[:p.Limit]
	}
	return records
}
