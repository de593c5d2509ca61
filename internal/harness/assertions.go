package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/keymap"
)

// AssertionContext is the final state assertions read.
type AssertionContext struct {
	Cache      *cache.Cache
	Keys       *keymap.KeyMap
	Deliveries map[string]int
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRecordExists, AssertRecordAbsent:
		id, err := identityOf("record", a.Record)
		if err != nil {
			return err
		}
		return assertPresence(actx.Cache, id, a.Type == AssertRecordExists)
	case AssertAttributeEquals:
		id, err := identityOf("record", a.Record)
		if err != nil {
			return err
		}
		want, err := toIR("value", a.Value)
		if err != nil {
			return err
		}
		return assertAttribute(actx.Cache, id, a.Attribute, want)
	case AssertRelatedEquals:
		id, err := identityOf("record", a.Record)
		if err != nil {
			return err
		}
		want, err := toIR("related", a.Related)
		if err != nil {
			return err
		}
		return assertRelated(actx.Cache, id, a.Relationship, want)
	case AssertLiveQueryDeliveries:
		if got := actx.Deliveries[a.LiveQuery]; got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s delivered %d times", a.LiveQuery, a.Count),
				Actual:   fmt.Sprintf("%d deliveries", got),
			}
		}
		return nil
	case AssertKeyMapsTo:
		id, err := identityOf("record", a.Record)
		if err != nil {
			return err
		}
		return assertKey(actx.Keys, id, a.Key, fmt.Sprint(a.Value))
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertPresence(c *cache.Cache, id ir.RecordIdentity, want bool) error {
	got := c.GetRecord(id) != nil
	if got == want {
		return nil
	}
	typ, expected, actual := AssertRecordExists, "present", "absent"
	if !want {
		typ, expected, actual = AssertRecordAbsent, "absent", "present"
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s %s", id, expected),
		Actual:   actual,
	}
}

func assertAttribute(c *cache.Cache, id ir.RecordIdentity, name string, want ir.IRValue) error {
	rec := c.GetRecord(id)
	if rec == nil {
		return &AssertionError{
			Type:     AssertAttributeEquals,
			Expected: fmt.Sprintf("%s.%s = %s", id, name, render(want)),
			Actual:   "record absent",
		}
	}
	got, ok := rec.Attribute(name)
	if !ok {
		got = ir.IRNull{}
	}
	if !ir.Equal(got, want) && !(ir.IsNull(got) && ir.IsNull(want)) {
		return &AssertionError{
			Type:     AssertAttributeEquals,
			Expected: fmt.Sprintf("%s.%s = %s", id, name, render(want)),
			Actual:   render(got),
		}
	}
	return nil
}

// assertRelated compares a relationship with an identity, a list of
// identities or null. Lists compare as sets. Null matches an empty
// relationship of either kind.
func assertRelated(c *cache.Cache, id ir.RecordIdentity, name string, want ir.IRValue) error {
	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertRelatedEquals,
			Expected: fmt.Sprintf("%s.%s = %s", id, name, render(want)),
			Actual:   actual,
		}
	}
	rec := c.GetRecord(id)
	if rec == nil {
		return fail("record absent")
	}
	rel, _ := rec.Relationship(name)
	actual := render(ir.EncodeRelationship(rel)["data"])

	switch w := want.(type) {
	case ir.IRNull:
		if !rel.IsEmpty() {
			return fail(actual)
		}
	case ir.IRArray:
		ids, err := ir.DecodeIdentities(w)
		if err != nil {
			return fmt.Errorf("related: %w", err)
		}
		if !ir.SameIdentitySet(rel.Identities(), ids) {
			return fail(actual)
		}
	default:
		target, err := ir.DecodeIdentity(w)
		if err != nil {
			return fmt.Errorf("related: %w", err)
		}
		if rel.ToMany || rel.One == nil || *rel.One != target {
			return fail(actual)
		}
	}
	return nil
}

func assertKey(keys *keymap.KeyMap, id ir.RecordIdentity, key, value string) error {
	got, ok := keys.KeyToID(id.Type, key, value)
	if ok && got == id.ID {
		return nil
	}
	actual := "unmapped"
	if ok {
		actual = got
	}
	return &AssertionError{
		Type:     AssertKeyMapsTo,
		Expected: fmt.Sprintf("%s %s=%s maps to %s", id.Type, key, value, id.ID),
		Actual:   actual,
	}
}
