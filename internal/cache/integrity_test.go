package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recache/internal/ir"
)

func TestIntegrityInverseOps(t *testing.T) {
	p := NewIntegrityProcessor(testSchema())
	earth, jupiter := pid("earth"), pid("jupiter")

	view := newRecordStore()
	ioMoon := record(mid("io"), func(r *ir.Record) { r.SetRelationship("planet", ir.HasOne(earth)) })
	europa := record(mid("europa"), func(r *ir.Record) { r.SetRelationship("planet", ir.HasOne(jupiter)) })
	view.set(&ioMoon)
	view.set(&europa)

	t.Run("to-one inverse", func(t *testing.T) {
		ops := p.inverseOps(view, earth, "moons",
			[]ir.RecordIdentity{mid("io"), mid("europa")},
			[]ir.RecordIdentity{mid("titan")})

		// europa already points at jupiter and is left alone.
		assert.ElementsMatch(t, []ir.Operation{
			ir.ReplaceRelatedRecord{Record: mid("io"), Relationship: "planet"},
			ir.ReplaceRelatedRecord{Record: mid("titan"), Relationship: "planet", RelatedRecord: &earth},
		}, ops)
	})

	t.Run("to-many inverse", func(t *testing.T) {
		ops := p.inverseOps(view, earth, "star", nil, []ir.RecordIdentity{sid("sol")})
		require.Len(t, ops, 1)
		assert.Equal(t, ir.AddToRelatedRecords{Record: sid("sol"), Relationship: "planets", RelatedRecord: earth}, ops[0])
	})

	t.Run("no inverse", func(t *testing.T) {
		assert.Empty(t, p.inverseOps(view, earth, "neighbors", nil, []ir.RecordIdentity{jupiter}))
	})
}
