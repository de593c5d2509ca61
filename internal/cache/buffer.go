package cache

import (
	"maps"
	"slices"

	"github.com/roach88/recache/internal/ir"
)

// transformBuffer stages a batch over the committed store. Reads see the
// staged state; nothing reaches the store until commit. A nil overlay entry
// is a tombstone for a removed record.
type transformBuffer struct {
	base    *recordStore
	overlay map[ir.RecordIdentity]*ir.Record
	order   []ir.RecordIdentity
}

func newTransformBuffer(base *recordStore) *transformBuffer {
	return &transformBuffer{
		base:    base,
		overlay: make(map[ir.RecordIdentity]*ir.Record),
	}
}

func (b *transformBuffer) Record(id ir.RecordIdentity) (*ir.Record, bool) {
	if r, ok := b.overlay[id]; ok {
		return r, r != nil
	}
	return b.base.Record(id)
}

func (b *transformBuffer) RecordsOfType(typ string) []*ir.Record {
	byID := make(map[string]*ir.Record)
	for _, r := range b.base.RecordsOfType(typ) {
		byID[r.ID] = r
	}
	for id, r := range b.overlay {
		if id.Type != typ {
			continue
		}
		if r == nil {
			delete(byID, id.ID)
		} else {
			byID[id.ID] = r
		}
	}
	out := make([]*ir.Record, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, byID[id])
	}
	return out
}

// Referrers merges the committed index, minus links held by overlaid
// records, with a scan of the overlay.
func (b *transformBuffer) Referrers(id ir.RecordIdentity) []Reference {
	var refs []Reference
	for _, ref := range b.base.Referrers(id) {
		if _, overlaid := b.overlay[ref.Record]; !overlaid {
			refs = append(refs, ref)
		}
	}
	for _, r := range b.overlay {
		if r == nil {
			continue
		}
		for name, rel := range r.Relationships {
			if rel.Contains(id) {
				refs = append(refs, Reference{Record: r.Identity(), Relationship: name})
			}
		}
	}
	slices.SortFunc(refs, compareReferences)
	return refs
}

func (b *transformBuffer) set(r *ir.Record) {
	b.touch(r.Identity())
	b.overlay[r.Identity()] = r
}

func (b *transformBuffer) remove(id ir.RecordIdentity) {
	b.touch(id)
	b.overlay[id] = nil
}

func (b *transformBuffer) touch(id ir.RecordIdentity) {
	if _, ok := b.overlay[id]; !ok {
		b.order = append(b.order, id)
	}
}

// commit writes the staged state to the store in first-touch order.
func (b *transformBuffer) commit() {
	for _, id := range b.order {
		if r := b.overlay[id]; r != nil {
			b.base.set(r)
		} else {
			b.base.remove(id)
		}
	}
	b.overlay = make(map[ir.RecordIdentity]*ir.Record)
	b.order = nil
}
