package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/compiler"
	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/keymap"
	"github.com/roach88/recache/internal/query"
	"github.com/roach88/recache/internal/testutil"
)

// Harness is the scenario execution engine.
// It drives a fresh cache with a deterministic clock for trace sequence
// numbers.
type Harness struct {
	cache  *cache.Cache
	keys   *keymap.KeyMap
	clock  *testutil.DeterministicClock
	result *Result
	step   int

	// lastInverse undoes the last successful update or undo.
	lastInverse []ir.Operation
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh cache and key map so scenarios are
// isolated from each other.
//
// Execution flow:
// 1. Load the schema and build the cache from the scenario config
// 2. Subscribe the live queries and the trace listener
// 3. Execute steps, checking each expect clause
// 4. Evaluate assertions against the final state
//
// An error is returned only for malformed scenarios; failed expectations
// are reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	s, err := compiler.LoadSchema(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	keys := keymap.New()
	c, err := cache.New(s,
		cache.WithConfig(scenario.cacheConfig()),
		cache.WithKeyMap(keys),
		cache.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	h := &Harness{
		cache:  c,
		keys:   keys,
		clock:  testutil.NewDeterministicClock(),
		result: NewResult(),
	}

	stop := c.OnPatch(func(op ir.Operation, rec *ir.Record) {
		h.result.AddTrace(h.step, op, rec, h.clock.Next())
	})
	defer stop()

	for _, lq := range scenario.LiveQueries {
		unsubscribe, err := h.subscribe(lq)
		if err != nil {
			return nil, fmt.Errorf("live query %q: %w", lq.Name, err)
		}
		defer unsubscribe()
	}

	for i, step := range scenario.Steps {
		h.step = i
		if err := h.executeStep(ctx, i, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	actx := &AssertionContext{Cache: c, Keys: keys, Deliveries: h.result.Deliveries}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// cacheConfig applies the scenario overrides to the cache defaults.
func (s *Scenario) cacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	if s.Config == nil {
		return cfg
	}
	if v := s.Config.DebounceLiveQueries; v != nil {
		cfg.DebounceLiveQueries = *v
	}
	if v := s.Config.RaiseNotFoundExceptions; v != nil {
		cfg.RaiseNotFoundExceptions = *v
	}
	if v := s.Config.UseBuffer; v != nil {
		cfg.UseBuffer = *v
	}
	if v := s.Config.MaxOperations; v != nil {
		cfg.MaxOperations = *v
	}
	return cfg
}

func (h *Harness) subscribe(spec LiveQuerySpec) (func(), error) {
	expr, err := decodeExpression("expression", spec.Expression)
	if err != nil {
		return nil, err
	}
	lq, err := h.cache.LiveQuery(expr)
	if err != nil {
		return nil, err
	}
	h.result.Deliveries[spec.Name] = 0
	return lq.Subscribe(func(cache.LiveQueryUpdate) {
		h.result.Deliveries[spec.Name]++
	}), nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step) error {
	switch {
	case step.Update != nil:
		ops, err := decodeOperations(step.Update.Operations)
		if err != nil {
			return err
		}
		opts := cache.UpdateOptions{
			FullResponse:            true,
			RaiseNotFoundExceptions: step.Update.RaiseNotFoundExceptions,
			UseBuffer:               step.Update.UseBuffer,
		}
		resp, err := h.cache.Update(ctx, ops, opts)
		return h.checkUpdate(i, resp, err, step.Expect)

	case step.Undo:
		if h.lastInverse == nil {
			h.result.AddError(fmt.Sprintf("steps[%d]: nothing to undo", i))
			return nil
		}
		resp, err := h.cache.Update(ctx, h.lastInverse, cache.UpdateOptions{FullResponse: true})
		return h.checkUpdate(i, resp, err, step.Expect)

	default:
		expr, err := decodeExpression("query", step.Query)
		if err != nil {
			return err
		}
		res, err := h.cache.Query(ctx, expr, cache.QueryOptions{})
		return h.checkQuery(i, res, err, step.Expect)
	}
}

func (h *Harness) checkUpdate(i int, resp *cache.Response, err error, expect *Expect) error {
	if !h.checkError(i, err, expect) || err != nil {
		return nil
	}
	h.lastInverse = resp.Details.InverseOperations
	if expect == nil {
		return nil
	}

	if expect.Data != nil {
		want, err := toIR("expect.data", expect.Data)
		if err != nil {
			return err
		}
		got := make(ir.IRArray, len(resp.Data))
		for j, rec := range resp.Data {
			got[j] = ir.IRNull{}
			if rec != nil {
				got[j] = ir.EncodeRecord(rec)
			}
		}
		if !matchSubset(got, want) {
			h.result.AddError(fmt.Sprintf("steps[%d]: data mismatch\n  Expected: %s\n  Actual: %s", i, render(want), render(got)))
		}
	}

	if expect.Inverse != nil {
		want, err := toIR("expect.inverse", expect.Inverse)
		if err != nil {
			return err
		}
		got := ir.EncodeOperations(resp.Details.InverseOperations)
		if !matchSubset(got, want) {
			h.result.AddError(fmt.Sprintf("steps[%d]: inverse mismatch\n  Expected: %s\n  Actual: %s", i, render(want), render(got)))
		}
	}
	return nil
}

func (h *Harness) checkQuery(i int, res query.Result, err error, expect *Expect) error {
	if !h.checkError(i, err, expect) || err != nil || expect == nil {
		return nil
	}
	got := encodeResult(res)

	switch {
	case expect.Undefined:
		if res.Defined {
			h.result.AddError(fmt.Sprintf("steps[%d]: expected undefined result, got %s", i, render(got)))
		}
	case expect.Null:
		if !res.Defined || res.Many || res.Record != nil {
			h.result.AddError(fmt.Sprintf("steps[%d]: expected null result, got %s", i, render(got)))
		}
	case expect.Result != nil:
		want, err := toIR("expect.result", expect.Result)
		if err != nil {
			return err
		}
		if got == nil || !matchSubset(got, want) {
			h.result.AddError(fmt.Sprintf("steps[%d]: result mismatch\n  Expected: %s\n  Actual: %s", i, render(want), render(got)))
		}
	}
	return nil
}

// checkError compares err with the expected error code. It reports whether
// the outcome matched.
func (h *Harness) checkError(i int, err error, expect *Expect) bool {
	want := ""
	if expect != nil {
		want = expect.Error
	}
	switch {
	case err == nil && want == "":
		return true
	case err == nil:
		h.result.AddError(fmt.Sprintf("steps[%d]: expected error %s, step succeeded", i, want))
	case want == "":
		h.result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
	case ir.CodeOf(err) != want:
		h.result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %s (%v)", i, want, ir.CodeOf(err), err))
	default:
		return true
	}
	return false
}

// encodeResult returns the wire form of a query answer, or nil when it is
// undefined.
func encodeResult(res query.Result) ir.IRValue {
	switch {
	case !res.Defined:
		return nil
	case res.Many:
		arr := make(ir.IRArray, len(res.Records))
		for i, r := range res.Records {
			arr[i] = ir.EncodeRecord(r)
		}
		return arr
	case res.Record == nil:
		return ir.IRNull{}
	}
	return ir.EncodeRecord(res.Record)
}

func decodeOperations(raw []map[string]any) ([]ir.Operation, error) {
	ops := make([]ir.Operation, len(raw))
	for i, m := range raw {
		v, err := toIR(fmt.Sprintf("operations[%d]", i), m)
		if err != nil {
			return nil, err
		}
		op, err := ir.DecodeOperation(v)
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

func decodeExpression(field string, raw map[string]any) (query.Expression, error) {
	v, err := toIR(field, raw)
	if err != nil {
		return nil, err
	}
	expr, err := query.DecodeExpression(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return expr, nil
}
