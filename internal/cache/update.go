package cache

import (
	"context"

	"github.com/roach88/recache/internal/ir"
)

// PatchResult is the minimal answer to a batch.
type PatchResult struct {
	// Data holds, per caller operation, the resulting record: nil when the
	// result is undefined, the removed record for removeRecord.
	Data []*ir.Record

	// Inverse undoes the batch when applied in order.
	Inverse []ir.Operation
}

// Details describes everything a batch applied.
type Details struct {
	AppliedOperations       []ir.Operation
	AppliedOperationResults []*ir.Record
	InverseOperations       []ir.Operation
}

// Response is the answer to Update. Details is set only when requested.
type Response struct {
	Data    []*ir.Record
	Details *Details
}

// Patch applies ops with the cache's default options.
func (c *Cache) Patch(ctx context.Context, ops ...ir.Operation) (*PatchResult, error) {
	res, err := c.Update(ctx, ops, UpdateOptions{FullResponse: true})
	if err != nil {
		return nil, err
	}
	return &PatchResult{Data: res.Data, Inverse: res.Details.InverseOperations}, nil
}

// Update applies a batch of operations.
//
// Operations run in order, each followed by the synthetic operations the
// processors derive from it. The first error aborts the batch: under the
// buffer nothing is applied, otherwise the operations applied so far stay
// applied and their notifications have already been delivered.
func (c *Cache) Update(ctx context.Context, ops []ir.Operation, opts UpdateOptions) (*Response, error) {
	b := c.newBatch(ctx, ops, opts)
	runErr := b.run()

	switch {
	case runErr == nil:
		b.commit()
	case b.buffer != nil:
		c.logger.Debug("batch discarded", "operations", len(ops), "error", runErr)
		c.metrics.batch(outcomeDiscarded, c.store.Len())
		return nil, runErr
	default:
		b.finish(outcomeFailed)
		c.logger.Debug("batch failed", "operations", len(ops), "applied", len(b.applied), "error", runErr)
		return nil, runErr
	}

	resp := &Response{Data: b.data}
	if opts.FullResponse {
		resp.Details = &Details{
			AppliedOperations:       b.applied,
			AppliedOperationResults: b.results,
			InverseOperations:       reversed(b.inverse),
		}
	}
	return resp, nil
}

// workItem is one queued operation. index is the caller operation's
// position, or -1 for synthetic operations.
type workItem struct {
	op    ir.Operation
	index int
}

func (w workItem) synthetic() bool { return w.index < 0 }

// batch is the state of one Update call.
type batch struct {
	c      *Cache
	ctx    context.Context
	raise  bool
	target recordSource
	buffer *transformBuffer
	quota  quota
	queue  []workItem

	data    []*ir.Record
	applied []ir.Operation
	results []*ir.Record
	inverse []ir.Operation

	// Side effects held back until commit when buffered.
	keyPushes  []func()
	patches    []PatchEvent
	deliveries []liveQueryDelivery
}

func (c *Cache) newBatch(ctx context.Context, ops []ir.Operation, opts UpdateOptions) *batch {
	b := &batch{
		c:     c,
		ctx:   ctx,
		raise: firstSet(c.cfg.RaiseNotFoundExceptions, opts.RaiseNotFoundExceptions),
		quota: quota{limit: c.cfg.MaxOperations},
		data:  make([]*ir.Record, len(ops)),
	}
	if firstSet(c.cfg.UseBuffer, opts.UseBuffer) {
		b.buffer = newTransformBuffer(c.store)
		b.target = b.buffer
	} else {
		b.target = c.store
	}
	b.queue = make([]workItem, len(ops))
	for i, op := range ops {
		b.queue[i] = workItem{op: op, index: i}
	}
	return b
}

func (b *batch) run() error {
	for len(b.queue) > 0 {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		item := b.queue[0]
		b.queue = b.queue[1:]
		if err := b.process(item); err != nil {
			return err
		}
	}
	return nil
}

func (b *batch) process(item workItem) error {
	if err := b.quota.check(); err != nil {
		return err
	}
	op := item.op
	for _, p := range b.c.processors {
		if err := p.Validate(b.ctx, b.target, op); err != nil {
			return err
		}
	}

	id := op.Target()
	before, exists := b.target.Record(id)
	var after *ir.Record

	switch op.(type) {
	case ir.AddRecord, ir.UpdateRecord:
		after = ir.NewRecord(id)
		if exists {
			after = before.Clone()
		}
		applyOperation(after, op)
	case ir.RemoveRecord:
		if !exists {
			return b.skipMissing(item)
		}
	default:
		if !exists {
			if !item.synthetic() {
				return b.skipMissing(item)
			}
			// A synthetic link to an absent record creates a stub to hold it.
			// A synthetic clear of an absent record changes nothing.
			stub := ir.NewRecord(id)
			applyOperation(stub, op)
			if stub.IsBare() {
				b.skip(item, nil)
				return nil
			}
			after = stub
		} else {
			after = before.Clone()
			applyOperation(after, op)
		}
	}

	if exists && after != nil && ir.RecordsEqual(before, after) {
		b.skip(item, before)
		return nil
	}

	if !exists {
		before = nil
	}
	if after == nil {
		b.target.remove(id)
	} else {
		b.target.set(after)
	}

	result := after
	if after == nil {
		result = before
	}
	b.applied = append(b.applied, op)
	b.results = append(b.results, result.Clone())
	b.inverse = append(b.inverse, inverseOf(op, before))
	if !item.synthetic() {
		b.data[item.index] = result.Clone()
	}
	b.c.metrics.operationApplied(op.Kind())
	b.c.logger.Debug("operation applied",
		"op", op.Kind(),
		"record", id.String(),
		"synthetic", item.synthetic(),
	)

	b.pushKeys(op, id)
	b.notify(op, result)

	change := Change{Operation: op, Before: before, After: after}
	var follow []ir.Operation
	for _, p := range b.c.processors {
		ops, err := p.After(b.ctx, b.target, change)
		if err != nil {
			return err
		}
		follow = append(follow, ops...)
	}
	if len(follow) > 0 {
		items := make([]workItem, len(follow), len(follow)+len(b.queue))
		for i, f := range follow {
			items[i] = workItem{op: f, index: -1}
		}
		b.queue = append(items, b.queue...)
	}
	return nil
}

// skipMissing handles a caller operation whose target is absent: an error
// under strict rules, an undefined result otherwise. Synthetic operations
// are always lenient.
func (b *batch) skipMissing(item workItem) error {
	if !item.synthetic() && firstSet(b.raise, item.op.OperationOptions().RaiseNotFoundExceptions) {
		return &ir.NotFoundError{Record: item.op.Target(), Relationship: ir.RelationshipName(item.op)}
	}
	b.skip(item, nil)
	return nil
}

// skip records a no-op. Its result is the unchanged record or nil.
func (b *batch) skip(item workItem, current *ir.Record) {
	if !item.synthetic() {
		b.data[item.index] = current.Clone()
	}
	b.c.metrics.operationSkipped(item.op.Kind())
}

// pushKeys reflects key changes in the key map, at commit when buffered.
func (b *batch) pushKeys(op ir.Operation, id ir.RecordIdentity) {
	km := b.c.keyMap
	if km == nil {
		return
	}
	var push func()
	switch o := op.(type) {
	case ir.AddRecord:
		rec := o.Record
		push = func() { pushPayloadKeys(km, id, &rec) }
	case ir.UpdateRecord:
		rec := o.Record
		push = func() { pushPayloadKeys(km, id, &rec) }
	case ir.ReplaceKey:
		push = func() { km.PushKey(id, o.Key, o.Value) }
	default:
		return
	}
	if b.buffer != nil {
		b.keyPushes = append(b.keyPushes, push)
		return
	}
	push()
}

func pushPayloadKeys(km KeyMap, id ir.RecordIdentity, payload *ir.Record) {
	for key, value := range payload.Keys {
		km.PushKey(id, key, value)
	}
}

// notify emits the patch event and, for non-debounced live queries, the
// per-operation deliveries. Under the buffer both wait for commit.
func (b *batch) notify(op ir.Operation, result *ir.Record) {
	ev := PatchEvent{Operation: op, Result: result.Clone()}
	var deliveries []liveQueryDelivery
	if !b.c.cfg.DebounceLiveQueries {
		deliveries = b.c.liveQueries.evaluateAll(b.target, b.c.cfg.RaiseNotFoundExceptions)
	}
	if b.buffer != nil {
		b.patches = append(b.patches, ev)
		b.deliveries = append(b.deliveries, deliveries...)
		return
	}
	b.c.patchListeners.emit(ev)
	b.deliver(deliveries)
}

func (b *batch) deliver(deliveries []liveQueryDelivery) {
	n := 0
	for _, d := range deliveries {
		n += d.deliver()
	}
	b.c.metrics.delivered(n)
}

// commit writes a buffered batch to the store and releases the held side
// effects, then finishes the batch.
func (b *batch) commit() {
	if b.buffer != nil {
		b.buffer.commit()
		for _, push := range b.keyPushes {
			push()
		}
		for _, ev := range b.patches {
			b.c.patchListeners.emit(ev)
		}
		b.deliver(b.deliveries)
	}
	b.finish(outcomeCommitted)
}

// finish advances the revision and emits the transform and debounced live
// query deliveries when anything was applied.
func (b *batch) finish(outcome string) {
	c := b.c
	c.metrics.batch(outcome, c.store.Len())
	if len(b.applied) == 0 {
		return
	}
	c.revision++
	c.transformListeners.emit(Transform{
		Operations: append([]ir.Operation(nil), b.applied...),
		Inverse:    reversed(b.inverse),
	})
	if c.cfg.DebounceLiveQueries {
		b.deliver(c.liveQueries.evaluateAll(c.store, c.cfg.RaiseNotFoundExceptions))
	}
	c.logger.Debug("batch finished",
		"outcome", outcome,
		"applied", len(b.applied),
		"revision", c.revision,
	)
}
