package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a schema, a sequence of updates
// and queries against a fresh cache, and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path of a .yaml or .cue schema, relative to the
	// scenario file.
	Schema string `yaml:"schema"`

	// Config overrides the cache defaults.
	Config *ScenarioConfig `yaml:"config,omitempty"`

	// LiveQueries are registered before the first step. Their delivery
	// counts are available to live_query_deliveries assertions.
	LiveQueries []LiveQuerySpec `yaml:"live_queries,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScenarioConfig mirrors the cache options a scenario may set. Nil fields
// keep the cache defaults.
type ScenarioConfig struct {
	DebounceLiveQueries     *bool `yaml:"debounce_live_queries,omitempty"`
	RaiseNotFoundExceptions *bool `yaml:"raise_not_found_exceptions,omitempty"`
	UseBuffer               *bool `yaml:"use_buffer,omitempty"`
	MaxOperations           *int  `yaml:"max_operations,omitempty"`
}

// LiveQuerySpec names a live query expression in its wire form.
type LiveQuerySpec struct {
	Name       string         `yaml:"name"`
	Expression map[string]any `yaml:"expression"`
}

// Step is one of update, query or undo. Exactly one must be set.
type Step struct {
	// Update applies a batch of operations in their wire form.
	Update *UpdateStep `yaml:"update,omitempty"`

	// Query evaluates an expression in its wire form.
	Query map[string]any `yaml:"query,omitempty"`

	// Undo applies the inverse of the last successful update.
	Undo bool `yaml:"undo,omitempty"`

	// Expect validates the step's outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// UpdateStep is a batch with per-call options.
type UpdateStep struct {
	Operations              []map[string]any `yaml:"operations"`
	RaiseNotFoundExceptions *bool            `yaml:"raise_not_found_exceptions,omitempty"`
	UseBuffer               *bool            `yaml:"use_buffer,omitempty"`
}

// Expect specifies the expected outcome of a step.
//
// Data, Inverse and Result use subset semantics: objects match when every
// expected field matches, lists must have the same length.
type Expect struct {
	// Error is the expected error code. A step with an expected error must
	// fail with exactly that code.
	Error string `yaml:"error,omitempty"`

	// Data holds the per-operation results of an update. Null entries
	// expect an undefined result.
	Data []any `yaml:"data,omitempty"`

	// Inverse holds the expected inverse operations of an update.
	Inverse []any `yaml:"inverse,omitempty"`

	// Result is the expected answer of a query: a record or a list of
	// records. Records compare by subset.
	Result any `yaml:"result,omitempty"`

	// Null expects a single answer that is null.
	Null bool `yaml:"null_result,omitempty"`

	// Undefined expects a query answer that is undefined rather than null.
	Undefined bool `yaml:"undefined,omitempty"`
}

// Assertion validates the final cache state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_exists": Record is in the cache
	// - "record_absent": Record is not in the cache
	// - "attribute_equals": Record attribute equals Value
	// - "related_equals": Relationship holds exactly Related
	// - "live_query_deliveries": LiveQuery was delivered Count times
	// - "key_maps_to": Key value resolves to Record's id
	Type string `yaml:"type"`

	// Record is the record under test as {type, id}.
	Record map[string]any `yaml:"record,omitempty"`

	// Attribute names the attribute (attribute_equals).
	Attribute string `yaml:"attribute,omitempty"`

	// Value is the expected attribute value (attribute_equals) or key value
	// (key_maps_to).
	Value any `yaml:"value,omitempty"`

	// Relationship names the relationship (related_equals).
	Relationship string `yaml:"relationship,omitempty"`

	// Related is the expected related identity, list of identities, or null
	// (related_equals).
	Related any `yaml:"related,omitempty"`

	// Key names the key (key_maps_to).
	Key string `yaml:"key,omitempty"`

	// LiveQuery names a live query (live_query_deliveries).
	LiveQuery string `yaml:"live_query,omitempty"`

	// Count is the expected delivery count (live_query_deliveries).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordExists        = "record_exists"
	AssertRecordAbsent        = "record_absent"
	AssertAttributeEquals     = "attribute_equals"
	AssertRelatedEquals       = "related_equals"
	AssertLiveQueryDeliveries = "live_query_deliveries"
	AssertKeyMapsTo           = "key_maps_to"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The schema path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath is LoadScenario with an explicit directory for
// resolving a relative schema path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if s.Schema != "" && !filepath.IsAbs(s.Schema) {
		s.Schema = filepath.Join(basePath, s.Schema)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.LiveQueries))
	for i, lq := range s.LiveQueries {
		if lq.Name == "" {
			return fmt.Errorf("live_queries[%d]: name is required", i)
		}
		if names[lq.Name] {
			return fmt.Errorf("live_queries[%d]: duplicate name %q", i, lq.Name)
		}
		names[lq.Name] = true
		if lq.Expression == nil {
			return fmt.Errorf("live_queries[%d]: expression is required", i)
		}
	}

	for i, step := range s.Steps {
		set := 0
		if step.Update != nil {
			set++
			if len(step.Update.Operations) == 0 {
				return fmt.Errorf("steps[%d]: update requires operations", i)
			}
		}
		if step.Query != nil {
			set++
		}
		if step.Undo {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of update, query or undo is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, liveQueries map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecordExists, AssertRecordAbsent:
		if a.Record == nil {
			return fmt.Errorf("assertions[%d]: record is required for %s", index, a.Type)
		}
	case AssertAttributeEquals:
		if a.Record == nil || a.Attribute == "" {
			return fmt.Errorf("assertions[%d]: record and attribute are required for attribute_equals", index)
		}
	case AssertRelatedEquals:
		if a.Record == nil || a.Relationship == "" {
			return fmt.Errorf("assertions[%d]: record and relationship are required for related_equals", index)
		}
	case AssertLiveQueryDeliveries:
		if !liveQueries[a.LiveQuery] {
			return fmt.Errorf("assertions[%d]: unknown live query %q", index, a.LiveQuery)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for live_query_deliveries", index)
		}
	case AssertKeyMapsTo:
		if a.Record == nil || a.Key == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: record, key and value are required for key_maps_to", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
