package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	earth    = RecordIdentity{Type: "planet", ID: "earth"}
	moon     = RecordIdentity{Type: "moon", ID: "moon"}
	callisto = RecordIdentity{Type: "moon", ID: "callisto"}
)

func TestRelationshipConstructors(t *testing.T) {
	one := HasOne(earth)
	assert.False(t, one.ToMany)
	assert.Equal(t, []RecordIdentity{earth}, one.Identities())
	assert.False(t, one.IsEmpty())

	null := NullOne()
	assert.True(t, null.IsEmpty())
	assert.Nil(t, null.Identities())

	many := HasMany()
	assert.True(t, many.ToMany)
	assert.NotNil(t, many.Many)
	assert.True(t, many.IsEmpty())
}

func TestRelationshipEqualIgnoresOrder(t *testing.T) {
	assert.True(t, HasMany(moon, callisto).Equal(HasMany(callisto, moon)))
	assert.False(t, HasMany(moon).Equal(HasMany(moon, callisto)))
	assert.False(t, HasOne(earth).Equal(HasMany(earth)))
	assert.True(t, NullOne().Equal(NullOne()))
	assert.False(t, NullOne().Equal(HasOne(earth)))
}

func TestRelationshipCloneIsIndependent(t *testing.T) {
	rel := HasMany(moon)
	clone := rel.Clone()
	clone.Many[0] = callisto
	assert.Equal(t, moon, rel.Many[0])

	one := HasOne(earth)
	oneClone := one.Clone()
	oneClone.One.ID = "mars"
	assert.Equal(t, "earth", one.One.ID)
}

func TestIdentityDiff(t *testing.T) {
	added, removed := IdentityDiff([]RecordIdentity{moon}, []RecordIdentity{callisto, moon, callisto})
	assert.Equal(t, []RecordIdentity{callisto}, added)
	assert.Empty(t, removed)

	added, removed = IdentityDiff([]RecordIdentity{moon, callisto}, nil)
	assert.Empty(t, added)
	assert.Equal(t, []RecordIdentity{moon, callisto}, removed)
}

func TestRecordSetters(t *testing.T) {
	r := NewRecord(earth)
	r.SetKey("remoteId", "e1")
	r.SetAttribute("name", IRString("Earth"))
	r.SetAttribute("mass", nil)
	r.SetRelationship("moons", HasMany(moon))

	assert.Equal(t, map[string]string{"remoteId": "e1"}, r.Keys)
	assert.Equal(t, IRNull{}, r.Attributes["mass"])

	r.SetKey("remoteId", "")
	assert.Empty(t, r.Keys)
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := NewRecord(earth)
	r.SetAttribute("name", IRString("Earth"))
	r.SetRelationship("moons", HasMany(moon))

	c := r.Clone()
	c.SetAttribute("name", IRString("Terra"))
	c.Relationships["moons"].Many[0] = callisto

	assert.Equal(t, IRString("Earth"), r.Attributes["name"])
	assert.Equal(t, moon, r.Relationships["moons"].Many[0])
	assert.Nil(t, (*Record)(nil).Clone())
}

func TestRecordsEqualUsesObservableState(t *testing.T) {
	a := NewRecord(earth)
	a.SetAttribute("name", IRString("Earth"))

	b := a.Clone()
	b.SetAttribute("classification", IRNull{})
	b.SetRelationship("moons", HasMany())
	b.SetRelationship("sun", NullOne())
	assert.True(t, RecordsEqual(a, b))

	b.SetRelationship("moons", HasMany(moon))
	assert.False(t, RecordsEqual(a, b))

	assert.True(t, RecordsEqual(nil, nil))
	assert.False(t, RecordsEqual(a, nil))
	assert.False(t, RecordsEqual(a, NewRecord(moon)))
}

func TestRecordIsBare(t *testing.T) {
	r := NewRecord(earth)
	assert.True(t, r.IsBare())
	r.SetRelationship("moons", HasMany())
	assert.True(t, r.IsBare())
	r.SetRelationship("moons", HasMany(moon))
	assert.False(t, r.IsBare())
}

func TestCompareIdentities(t *testing.T) {
	assert.Equal(t, -1, CompareIdentities(moon, earth), "moon < planet by type")
	assert.Equal(t, -1, CompareIdentities(callisto, moon))
	assert.Equal(t, 0, CompareIdentities(callisto, callisto))
	assert.Equal(t, "planet:earth", earth.String())
}
