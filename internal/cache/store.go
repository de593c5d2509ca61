package cache

import (
	"cmp"
	"maps"
	"slices"

	"github.com/roach88/recache/internal/ir"
)

// Reference is one link pointing at a record: Record's Relationship holds
// the target.
type Reference struct {
	Record       ir.RecordIdentity
	Relationship string
}

func compareReferences(a, b Reference) int {
	if c := ir.CompareIdentities(a.Record, b.Record); c != 0 {
		return c
	}
	return cmp.Compare(a.Relationship, b.Relationship)
}

// recordSource is what the engine reads and writes during a batch. The
// record store implements it directly; the transform buffer implements it
// as an overlay.
//
// Records handed out are owned by the source and must not be modified;
// writers store fresh records instead.
type recordSource interface {
	Record(id ir.RecordIdentity) (*ir.Record, bool)
	RecordsOfType(typ string) []*ir.Record
	Referrers(id ir.RecordIdentity) []Reference
	set(r *ir.Record)
	remove(id ir.RecordIdentity)
}

// recordStore holds the committed records and the reverse relationship
// index.
//
// The reverse index maps a target to every (record, relationship) that
// links to it. Storing a record replaces its outgoing links. Removing a
// record drops its outgoing links only: incoming links stay until the
// referrers are updated, which is how removal finds them.
type recordStore struct {
	records   map[string]map[string]*ir.Record
	referrers map[ir.RecordIdentity]map[Reference]struct{}
	count     int
	// generation advances on every write, including writes made while a
	// batch is still running.
	generation uint64
}

func newRecordStore() *recordStore {
	return &recordStore{
		records:   make(map[string]map[string]*ir.Record),
		referrers: make(map[ir.RecordIdentity]map[Reference]struct{}),
	}
}

// Record returns a stored record.
func (s *recordStore) Record(id ir.RecordIdentity) (*ir.Record, bool) {
	r, ok := s.records[id.Type][id.ID]
	return r, ok
}

// RecordsOfType returns the records of a type ordered by id.
func (s *recordStore) RecordsOfType(typ string) []*ir.Record {
	byID := s.records[typ]
	out := make([]*ir.Record, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, byID[id])
	}
	return out
}

// Referrers returns every link pointing at id, ordered.
func (s *recordStore) Referrers(id ir.RecordIdentity) []Reference {
	refs := slices.Collect(maps.Keys(s.referrers[id]))
	slices.SortFunc(refs, compareReferences)
	return refs
}

// Len returns the number of stored records.
func (s *recordStore) Len() int {
	return s.count
}

func (s *recordStore) set(r *ir.Record) {
	s.generation++
	id := r.Identity()
	if prev, ok := s.Record(id); ok {
		s.unlink(prev)
	} else {
		s.count++
	}
	byID, ok := s.records[id.Type]
	if !ok {
		byID = make(map[string]*ir.Record)
		s.records[id.Type] = byID
	}
	byID[id.ID] = r
	s.link(r)
}

func (s *recordStore) remove(id ir.RecordIdentity) {
	prev, ok := s.Record(id)
	if !ok {
		return
	}
	s.generation++
	s.unlink(prev)
	delete(s.records[id.Type], id.ID)
	if len(s.records[id.Type]) == 0 {
		delete(s.records, id.Type)
	}
	s.count--
}

func (s *recordStore) link(r *ir.Record) {
	for name, rel := range r.Relationships {
		ref := Reference{Record: r.Identity(), Relationship: name}
		for _, target := range rel.Identities() {
			refs, ok := s.referrers[target]
			if !ok {
				refs = make(map[Reference]struct{})
				s.referrers[target] = refs
			}
			refs[ref] = struct{}{}
		}
	}
}

func (s *recordStore) unlink(r *ir.Record) {
	for name, rel := range r.Relationships {
		ref := Reference{Record: r.Identity(), Relationship: name}
		for _, target := range rel.Identities() {
			refs := s.referrers[target]
			delete(refs, ref)
			if len(refs) == 0 {
				delete(s.referrers, target)
			}
		}
	}
}
