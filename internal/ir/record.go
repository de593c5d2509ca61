package ir

import (
	"maps"
	"slices"
	"strings"
)

// RecordIdentity uniquely addresses a record. It is comparable and may be
// used as a map key.
type RecordIdentity struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// String renders the identity as "type:id".
func (r RecordIdentity) String() string {
	return r.Type + ":" + r.ID
}

// CompareIdentities orders identities by type, then id.
func CompareIdentities(a, b RecordIdentity) int {
	if c := strings.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Relationship is the stored value of one relationship. A to-one
// relationship with a nil One and a to-many relationship with no members are
// both "explicitly empty".
type Relationship struct {
	ToMany bool
	One    *RecordIdentity
	Many   []RecordIdentity
}

// HasOne returns a to-one relationship pointing at id.
func HasOne(id RecordIdentity) Relationship {
	return Relationship{One: &id}
}

// NullOne returns an explicitly empty to-one relationship.
func NullOne() Relationship {
	return Relationship{}
}

// HasMany returns a to-many relationship holding ids in order.
func HasMany(ids ...RecordIdentity) Relationship {
	if ids == nil {
		ids = []RecordIdentity{}
	}
	return Relationship{ToMany: true, Many: slices.Clone(ids)}
}

// Identities returns the related identities; empty for null/empty values.
func (r Relationship) Identities() []RecordIdentity {
	if r.ToMany {
		return r.Many
	}
	if r.One == nil {
		return nil
	}
	return []RecordIdentity{*r.One}
}

// IsEmpty reports whether the relationship holds no identity.
func (r Relationship) IsEmpty() bool {
	return len(r.Identities()) == 0
}

// Contains reports whether id is a member.
func (r Relationship) Contains(id RecordIdentity) bool {
	return slices.Contains(r.Identities(), id)
}

// Clone returns a copy that shares no memory with r.
func (r Relationship) Clone() Relationship {
	out := Relationship{ToMany: r.ToMany}
	if r.One != nil {
		one := *r.One
		out.One = &one
	}
	if r.Many != nil {
		out.Many = slices.Clone(r.Many)
	}
	return out
}

// Equal compares two relationship values. To-many members compare as sets.
func (r Relationship) Equal(o Relationship) bool {
	if r.ToMany != o.ToMany {
		return false
	}
	if !r.ToMany {
		if r.One == nil || o.One == nil {
			return r.One == nil && o.One == nil
		}
		return *r.One == *o.One
	}
	return SameIdentitySet(r.Many, o.Many)
}

// SameIdentitySet reports whether a and b hold the same identities,
// ignoring order and duplicates.
func SameIdentitySet(a, b []RecordIdentity) bool {
	as := identitySet(a)
	bs := identitySet(b)
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if _, ok := bs[id]; !ok {
			return false
		}
	}
	return true
}

func identitySet(ids []RecordIdentity) map[RecordIdentity]struct{} {
	set := make(map[RecordIdentity]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IdentityDiff returns the members of next missing from prev (added) and the
// members of prev missing from next (removed), each in their original order.
func IdentityDiff(prev, next []RecordIdentity) (added, removed []RecordIdentity) {
	ps := identitySet(prev)
	ns := identitySet(next)
	for _, id := range next {
		if _, ok := ps[id]; !ok && !slices.Contains(added, id) {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := ns[id]; !ok && !slices.Contains(removed, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// Record is an initialized record. Fields missing from a map are absent.
type Record struct {
	Type          string
	ID            string
	Keys          map[string]string
	Attributes    map[string]IRValue
	Relationships map[string]Relationship
}

// NewRecord returns an empty record with the given identity.
func NewRecord(id RecordIdentity) *Record {
	return &Record{Type: id.Type, ID: id.ID}
}

// Identity returns the record's identity.
func (r *Record) Identity() RecordIdentity {
	return RecordIdentity{Type: r.Type, ID: r.ID}
}

// Attribute returns an attribute value; absent attributes report false.
func (r *Record) Attribute(name string) (IRValue, bool) {
	v, ok := r.Attributes[name]
	return v, ok
}

// Relationship returns a relationship value; absent relationships report false.
func (r *Record) Relationship(name string) (Relationship, bool) {
	rel, ok := r.Relationships[name]
	return rel, ok
}

// SetKey sets a key; an empty value removes it.
func (r *Record) SetKey(name, value string) {
	if value == "" {
		delete(r.Keys, name)
		return
	}
	if r.Keys == nil {
		r.Keys = make(map[string]string)
	}
	r.Keys[name] = value
}

// SetAttribute stores an attribute value, IRNull included.
func (r *Record) SetAttribute(name string, v IRValue) {
	if v == nil {
		v = IRNull{}
	}
	if r.Attributes == nil {
		r.Attributes = make(map[string]IRValue)
	}
	r.Attributes[name] = v
}

// SetRelationship stores a relationship value, empty values included.
func (r *Record) SetRelationship(name string, rel Relationship) {
	if r.Relationships == nil {
		r.Relationships = make(map[string]Relationship)
	}
	r.Relationships[name] = rel.Clone()
}

// Clone returns a deep copy of the maps. Attribute values are shared since
// they are never modified in place.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Type: r.Type, ID: r.ID}
	if r.Keys != nil {
		out.Keys = maps.Clone(r.Keys)
	}
	if r.Attributes != nil {
		out.Attributes = maps.Clone(r.Attributes)
	}
	if r.Relationships != nil {
		out.Relationships = make(map[string]Relationship, len(r.Relationships))
		for name, rel := range r.Relationships {
			out.Relationships[name] = rel.Clone()
		}
	}
	return out
}

// Normalized returns a copy with null attributes, empty keys and empty
// relationships dropped, and empty maps set to nil.
func (r *Record) Normalized() *Record {
	out := &Record{Type: r.Type, ID: r.ID}
	for k, v := range r.Keys {
		if v != "" {
			out.SetKey(k, v)
		}
	}
	for k, v := range r.Attributes {
		if !IsNull(v) {
			out.SetAttribute(k, v)
		}
	}
	for k, rel := range r.Relationships {
		if !rel.IsEmpty() {
			out.SetRelationship(k, rel)
		}
	}
	return out
}

// IsBare reports whether the record carries no observable field.
func (r *Record) IsBare() bool {
	n := r.Normalized()
	return len(n.Keys) == 0 && len(n.Attributes) == 0 && len(n.Relationships) == 0
}

// RecordsEqual compares the observable state of two records. A nil record
// only equals another nil record.
func RecordsEqual(a, b *Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Identity() != b.Identity() {
		return false
	}
	an, bn := a.Normalized(), b.Normalized()
	if !maps.Equal(an.Keys, bn.Keys) {
		return false
	}
	if len(an.Attributes) != len(bn.Attributes) {
		return false
	}
	for k, v := range an.Attributes {
		if other, ok := bn.Attributes[k]; !ok || !Equal(v, other) {
			return false
		}
	}
	if len(an.Relationships) != len(bn.Relationships) {
		return false
	}
	for k, rel := range an.Relationships {
		other, ok := bn.Relationships[k]
		if !ok || !SameIdentitySet(rel.Identities(), other.Identities()) {
			return false
		}
	}
	return true
}
