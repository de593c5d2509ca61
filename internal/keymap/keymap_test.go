package keymap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recache/internal/ir"
)

func TestPushRecord(t *testing.T) {
	m := New()
	r := ir.NewRecord(ir.RecordIdentity{Type: "planet", ID: "p1"})
	r.SetKey("remoteId", "earth")
	m.PushRecord(r)

	id, ok := m.KeyToID("planet", "remoteId", "earth")
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	key, ok := m.IDToKey("planet", "remoteId", "p1")
	require.True(t, ok)
	assert.Equal(t, "earth", key)

	_, ok = m.KeyToID("moon", "remoteId", "earth")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestPushKeyReplacesPreviousValue(t *testing.T) {
	m := New()
	p1 := ir.RecordIdentity{Type: "planet", ID: "p1"}
	m.PushKey(p1, "remoteId", "earth")
	m.PushKey(p1, "remoteId", "terra")

	_, ok := m.KeyToID("planet", "remoteId", "earth")
	assert.False(t, ok, "old key value must no longer resolve")

	id, ok := m.KeyToID("planet", "remoteId", "terra")
	require.True(t, ok)
	assert.Equal(t, "p1", id)
	assert.Equal(t, 1, m.Len())
}

func TestPushKeyEmptyClears(t *testing.T) {
	m := New()
	p1 := ir.RecordIdentity{Type: "planet", ID: "p1"}
	m.PushKey(p1, "remoteId", "earth")
	m.PushKey(p1, "remoteId", "")

	_, ok := m.KeyToID("planet", "remoteId", "earth")
	assert.False(t, ok)
	_, ok = m.IDToKey("planet", "remoteId", "p1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestPushRecordNil(t *testing.T) {
	m := New()
	m.PushRecord(nil)
	assert.Equal(t, 0, m.Len())
}

func TestConcurrentReads(t *testing.T) {
	m := New()
	p1 := ir.RecordIdentity{Type: "planet", ID: "p1"}
	m.PushKey(p1, "remoteId", "earth")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				id, ok := m.KeyToID("planet", "remoteId", "earth")
				assert.True(t, ok)
				assert.Equal(t, "p1", id)
			}
		}()
	}
	wg.Wait()
}
