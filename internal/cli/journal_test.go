package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedJournal applies ops.yaml then missing_ops.yaml through a journal and
// returns its path.
func seedJournal(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "recache.db")
	for _, ops := range []string{"testdata/ops.yaml", "testdata/missing_ops.yaml"} {
		_, err := execute(t, "apply", "--schema", "testdata/schema.yaml", "--ops", ops, "--db", db)
		require.NoError(t, err)
	}
	return db
}

type traceResponse struct {
	Data struct {
		Entries []struct {
			Seq        int64  `json:"seq"`
			ID         string `json:"id"`
			Hash       string `json:"hash"`
			Operations []any  `json:"operations"`
			Inverse    []any  `json:"inverse"`
		} `json:"entries"`
		LastSeq int64 `json:"last_seq"`
	} `json:"data"`
}

func journalTrace(t *testing.T, db string, args ...string) traceResponse {
	t.Helper()
	out, err := execute(t, append([]string{"journal", "trace", "--db", db, "--format", "json"}, args...)...)
	require.NoError(t, err)
	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestJournalTrace(t *testing.T) {
	db := seedJournal(t)

	resp := journalTrace(t, db)
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, int64(1), resp.Data.Entries[0].Seq)
	assert.Equal(t, int64(2), resp.Data.Entries[1].Seq)
	assert.Len(t, resp.Data.Entries[0].Operations, 2)
	// The skipped replaceAttribute is not journaled.
	assert.Len(t, resp.Data.Entries[1].Operations, 1)
	assert.Equal(t, int64(2), resp.Data.LastSeq)

	after := journalTrace(t, db, "--after", "1")
	require.Len(t, after.Data.Entries, 1)
	assert.Equal(t, int64(2), after.Data.Entries[0].Seq)
}

func TestJournalTrace_Text(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "journal", "trace", "--db", db, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "2 ops")
	assert.Contains(t, out, "name: Venus")
	assert.Contains(t, out, "2 entries, last seq 2")
}

func TestJournalTrace_RequiresDB(t *testing.T) {
	_, err := execute(t, "journal", "trace")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--db is required")
}

func TestJournalReplay(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "journal", "replay", "--db", db, "--schema", "testdata/schema.yaml", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   JournalReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.Equal(t, 2, resp.Data.Entries)
	assert.Equal(t, 3, resp.Data.Records)
	assert.Len(t, resp.Data.StateHash, 64)

	// Replay does not append to the journal.
	assert.Len(t, journalTrace(t, db).Data.Entries, 2)
}

func TestJournalTruncate(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "journal", "truncate", "--db", db, "--through", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ deleted 1 entries through seq 1")

	resp := journalTrace(t, db)
	require.Len(t, resp.Data.Entries, 1)
	assert.Equal(t, int64(2), resp.Data.Entries[0].Seq)
}

func TestJournalTruncate_RejectsNonPositive(t *testing.T) {
	db := seedJournal(t)

	_, err := execute(t, "journal", "truncate", "--db", db, "--through", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestJournalRollback(t *testing.T) {
	db := seedJournal(t)
	second := journalTrace(t, db).Data.Entries[1]

	out, err := execute(t, "journal", "rollback", "--db", db, "--schema", "testdata/schema.yaml", "--id", second.ID, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			ID      string `json:"id"`
			Applied []any  `json:"applied"`
			Seq     int64  `json:"seq"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, second.ID, resp.Data.ID)
	assert.Equal(t, int64(3), resp.Data.Seq)
	require.Len(t, resp.Data.Applied, 1)
	assert.Equal(t, "removeRecord", resp.Data.Applied[0].(map[string]any)["op"])

	// Venus is gone once the journal is replayed.
	qresp, err := runQueryJSON(t, "--db", db, "--expr", "testdata/planets.yaml")
	require.NoError(t, err)
	assert.Len(t, qresp.Data.Result, 2)
}

func TestJournalRollback_UnknownEntry(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "journal", "rollback", "--db", db, "--schema", "testdata/schema.yaml", "--id", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "entry not found")
}
