package journal

import (
	"context"
	"fmt"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/ir"
)

// Attach appends every transform c commits. Append failures are logged,
// not returned: the batch has already committed. The returned function
// detaches the journal.
func (j *Journal) Attach(ctx context.Context, c *cache.Cache) (detach func()) {
	return c.OnTransform(func(tr cache.Transform) {
		e, err := j.Append(ctx, tr)
		if err != nil {
			j.logger.Error("journal append failed", "operations", len(tr.Operations), "error", err)
			return
		}
		j.logger.Debug("journal appended", "id", e.ID, "seq", e.Seq, "operations", len(e.Operations))
	})
}

// Replay applies the entries after afterSeq to c in seq order, each as one
// buffered batch, and returns the number of entries applied. Replaying into
// a cache this journal is attached to would append the entries again.
func (j *Journal) Replay(ctx context.Context, c *cache.Cache, afterSeq int64) (int, error) {
	entries, err := j.Entries(ctx, afterSeq)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if _, err := c.Update(ctx, e.Operations, cache.UpdateOptions{UseBuffer: ir.Bool(true)}); err != nil {
			return i, fmt.Errorf("replay entry %s (seq %d): %w", e.ID, e.Seq, err)
		}
	}
	return len(entries), nil
}

// Rollback applies the inverse of one entry to c as a buffered batch.
func (j *Journal) Rollback(ctx context.Context, c *cache.Cache, id string) (*cache.Response, error) {
	e, err := j.Entry(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := c.Update(ctx, e.Inverse, cache.UpdateOptions{UseBuffer: ir.Bool(true), FullResponse: true})
	if err != nil {
		return nil, fmt.Errorf("rollback entry %s: %w", id, err)
	}
	return resp, nil
}
