// Package keymap maintains the bidirectional index between remote keys and
// local record ids.
//
// A key is addressed by (type, key name, key value) and resolves to a record
// id; the reverse lookup (type, key name, id) resolves to the key value. Both
// directions live in xsync.MapOf so lookups from query goroutines never block
// the writer.
package keymap

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/recache/internal/ir"
)

type keyRef struct {
	Type  string
	Key   string
	Value string
}

type idRef struct {
	Type string
	Key  string
	ID   string
}

// KeyMap is safe for concurrent use. Writes for the same record are expected
// to come from a single writer (the cache engine).
type KeyMap struct {
	toID  *xsync.MapOf[keyRef, string]
	toKey *xsync.MapOf[idRef, string]
}

// New returns an empty KeyMap.
func New() *KeyMap {
	return &KeyMap{
		toID:  xsync.NewMapOf[keyRef, string](),
		toKey: xsync.NewMapOf[idRef, string](),
	}
}

// KeyToID resolves a key value to a record id.
func (m *KeyMap) KeyToID(typ, key, value string) (string, bool) {
	return m.toID.Load(keyRef{Type: typ, Key: key, Value: value})
}

// IDToKey resolves a record id to its key value.
func (m *KeyMap) IDToKey(typ, key, id string) (string, bool) {
	return m.toKey.Load(idRef{Type: typ, Key: key, ID: id})
}

// PushRecord indexes every key the record carries. Keys absent from the
// record are left untouched.
func (m *KeyMap) PushRecord(r *ir.Record) {
	if r == nil {
		return
	}
	for key, value := range r.Keys {
		m.PushKey(r.Identity(), key, value)
	}
}

// PushKey sets one key of a record. An empty value drops the mapping.
func (m *KeyMap) PushKey(id ir.RecordIdentity, key, value string) {
	ref := idRef{Type: id.Type, Key: key, ID: id.ID}
	if prev, ok := m.toKey.Load(ref); ok && prev != value {
		m.toID.Delete(keyRef{Type: id.Type, Key: key, Value: prev})
	}
	if value == "" {
		m.toKey.Delete(ref)
		return
	}
	m.toKey.Store(ref, value)
	m.toID.Store(keyRef{Type: id.Type, Key: key, Value: value}, id.ID)
}

// Len returns the number of indexed key values.
func (m *KeyMap) Len() int {
	return m.toKey.Size()
}
