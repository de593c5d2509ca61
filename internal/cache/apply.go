package cache

import (
	"slices"

	"github.com/roach88/recache/internal/ir"
)

// applyOperation mutates rec, a private copy, as op describes. addRecord and
// updateRecord merge: only the keys, attributes and relationships present
// in the payload are overwritten.
func applyOperation(rec *ir.Record, op ir.Operation) {
	switch o := op.(type) {
	case ir.AddRecord:
		merge(rec, &o.Record)
	case ir.UpdateRecord:
		merge(rec, &o.Record)
	case ir.ReplaceKey:
		rec.SetKey(o.Key, o.Value)
	case ir.ReplaceAttribute:
		rec.SetAttribute(o.Attribute, o.Value)
	case ir.AddToRelatedRecords:
		rel, _ := rec.Relationship(o.Relationship)
		if !rel.Contains(o.RelatedRecord) {
			rec.SetRelationship(o.Relationship, ir.HasMany(append(slices.Clone(rel.Identities()), o.RelatedRecord)...))
		}
	case ir.RemoveFromRelatedRecords:
		rel, ok := rec.Relationship(o.Relationship)
		if ok && rel.Contains(o.RelatedRecord) {
			kept := slices.DeleteFunc(slices.Clone(rel.Identities()), func(id ir.RecordIdentity) bool {
				return id == o.RelatedRecord
			})
			rec.SetRelationship(o.Relationship, ir.HasMany(kept...))
		}
	case ir.ReplaceRelatedRecords:
		rec.SetRelationship(o.Relationship, ir.HasMany(o.RelatedRecords...))
	case ir.ReplaceRelatedRecord:
		if o.RelatedRecord == nil {
			rec.SetRelationship(o.Relationship, ir.NullOne())
		} else {
			rec.SetRelationship(o.Relationship, ir.HasOne(*o.RelatedRecord))
		}
	}
}

func merge(dst, src *ir.Record) {
	for k, v := range src.Keys {
		dst.SetKey(k, v)
	}
	for k, v := range src.Attributes {
		dst.SetAttribute(k, v)
	}
	for k, rel := range src.Relationships {
		dst.SetRelationship(k, rel)
	}
}

// inverseOf returns the operation that undoes op. before is the record
// prior to op, nil when op created it (stubs included).
func inverseOf(op ir.Operation, before *ir.Record) ir.Operation {
	id := op.Target()
	if before == nil {
		return ir.RemoveRecord{Record: id}
	}

	switch o := op.(type) {
	case ir.AddRecord:
		return ir.UpdateRecord{Record: *priorFields(before, &o.Record)}
	case ir.UpdateRecord:
		return ir.UpdateRecord{Record: *priorFields(before, &o.Record)}
	case ir.RemoveRecord:
		return ir.AddRecord{Record: *before.Clone()}
	case ir.ReplaceKey:
		return ir.ReplaceKey{Record: id, Key: o.Key, Value: before.Keys[o.Key]}
	case ir.ReplaceAttribute:
		prev, ok := before.Attribute(o.Attribute)
		if !ok {
			prev = ir.IRNull{}
		}
		return ir.ReplaceAttribute{Record: id, Attribute: o.Attribute, Value: prev}
	case ir.AddToRelatedRecords:
		return ir.RemoveFromRelatedRecords{Record: id, Relationship: o.Relationship, RelatedRecord: o.RelatedRecord}
	case ir.RemoveFromRelatedRecords:
		return ir.AddToRelatedRecords{Record: id, Relationship: o.Relationship, RelatedRecord: o.RelatedRecord}
	case ir.ReplaceRelatedRecords:
		prev := []ir.RecordIdentity{}
		if rel, ok := before.Relationship(o.Relationship); ok {
			prev = slices.Clone(rel.Identities())
		}
		return ir.ReplaceRelatedRecords{Record: id, Relationship: o.Relationship, RelatedRecords: prev}
	case ir.ReplaceRelatedRecord:
		inv := ir.ReplaceRelatedRecord{Record: id, Relationship: o.Relationship}
		if rel, ok := before.Relationship(o.Relationship); ok && rel.One != nil {
			prev := *rel.One
			inv.RelatedRecord = &prev
		}
		return inv
	}
	return nil
}

// priorFields returns a record holding before's value of every field the
// payload touches. Fields before lacked come back as their empty form so
// the undo clears them.
func priorFields(before, payload *ir.Record) *ir.Record {
	r := ir.NewRecord(before.Identity())
	if len(payload.Keys) > 0 {
		r.Keys = make(map[string]string, len(payload.Keys))
		for k := range payload.Keys {
			r.Keys[k] = before.Keys[k]
		}
	}
	for k := range payload.Attributes {
		prev, ok := before.Attribute(k)
		if !ok {
			prev = ir.IRNull{}
		}
		r.SetAttribute(k, prev)
	}
	for k, incoming := range payload.Relationships {
		prev, ok := before.Relationship(k)
		switch {
		case ok:
			r.SetRelationship(k, prev)
		case incoming.ToMany:
			r.SetRelationship(k, ir.HasMany())
		default:
			r.SetRelationship(k, ir.NullOne())
		}
	}
	return r
}
