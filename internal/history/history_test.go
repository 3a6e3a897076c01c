package history

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsweep/internal/model"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	s := Open(context.Background(), NewJSONFile(path), quietLogger())
	assert.Empty(t, s.Records())
	assert.False(t, s.IsKnown("a@example.com"))
}

func TestOpen_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := Open(context.Background(), NewJSONFile(path), quietLogger())
	assert.Empty(t, s.Records())

	// The store stays usable and overwrites the corrupt file.
	require.NoError(t, s.Record(context.Background(), "a@example.com", "A", true, "https://a.example.com/u"))
	again := Open(context.Background(), NewJSONFile(path), quietLogger())
	assert.True(t, again.IsKnown("a@example.com"))
}

func TestRecord_WriteThroughAndCanonicalKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	s := Open(ctx, NewJSONFile(path), quietLogger())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }

	require.NoError(t, s.Record(ctx, "  News@Example.com ", "Newsletter", false, "https://x.com/unsubscribe?id=1"))

	assert.True(t, s.IsKnown("news@example.com"))
	assert.True(t, s.IsKnown("NEWS@EXAMPLE.COM"))
	rec, ok := s.Get("news@example.com")
	require.True(t, ok)
	assert.Equal(t, model.HistoryRecord{
		Name:      "Newsletter",
		Email:     "news@example.com",
		Attempted: true,
		Success:   false,
		Timestamp: "2024-05-01T11:00:00Z",
		URL:       "https://x.com/unsubscribe?id=1",
	}, rec)

	// Persisted immediately, in the documented shape.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	require.Contains(t, onDisk, "news@example.com")
	assert.Equal(t, true, onDisk["news@example.com"]["attempted"])
	assert.Equal(t, false, onDisk["news@example.com"]["success"])
	assert.Equal(t, "https://x.com/unsubscribe?id=1", onDisk["news@example.com"]["url"])

	// Overwrite keeps a single entry.
	require.NoError(t, s.Record(ctx, "news@example.com", "Newsletter", true, "https://x.com/u2"))
	reopened := Open(ctx, NewJSONFile(path), quietLogger())
	require.Len(t, reopened.Records(), 1)
	rec, _ = reopened.Get("news@example.com")
	assert.True(t, rec.Success)
	assert.Equal(t, "https://x.com/u2", rec.URL)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	s := Open(ctx, NewJSONFile(path), quietLogger())
	require.NoError(t, s.Record(ctx, "b@example.com", "B", true, "https://b"))
	require.NoError(t, s.Record(ctx, "a@example.com", "A", true, "https://a"))

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "a@example.com", recs[0].Email)

	removed, err := s.Forget(ctx, "B@example.com")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Forget(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, removed)

	reopened := Open(ctx, NewJSONFile(path), quietLogger())
	assert.False(t, reopened.IsKnown("b@example.com"))
	assert.True(t, reopened.IsKnown("a@example.com"))
}
