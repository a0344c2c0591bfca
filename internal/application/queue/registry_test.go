package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	r := NewRegistry(t.TempDir())
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := r.GenerateID()
		assert.Len(t, id, 36)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestPersist(t *testing.T) {
	t.Run("round trip through the written file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "work", "pipelines")
		r := NewRegistry(dir)
		record := domain.NewPipelineRecord("test", "source", []string{"transform"}, "dest",
			map[string]any{"data": []any{map[string]any{"ObjectIdentifier": "u1", "Properties": map[string]any{"n": "x"}}}})

		path, err := r.Persist(record)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "test.json"), path)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded domain.PipelineRecord
		require.NoError(t, json.Unmarshal(raw, &decoded))

		assert.Equal(t, record.ID, decoded.ID)
		assert.Equal(t, record.Source, decoded.Source)
		assert.Equal(t, record.Transformers, decoded.Transformers)
		assert.Equal(t, record.Destination, decoded.Destination)
		assert.Equal(t, record.Payload, decoded.Payload)
		assert.True(t, record.CreatedAt.Equal(decoded.CreatedAt))
	})

	t.Run("record fields use the queue file format", func(t *testing.T) {
		r := NewRegistry(t.TempDir())
		path, err := r.Persist(domain.NewPipelineRecord("fmt", "s", nil, "d", nil))
		require.NoError(t, err)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))

		for _, key := range []string{"id", "source", "transformers", "destination", "payload", "created_at"} {
			assert.Contains(t, fields, key)
		}
		assert.Equal(t, []any{}, fields["transformers"])
	})

	t.Run("ids are sanitized into file names", func(t *testing.T) {
		r := NewRegistry(t.TempDir())

		path, err := r.Persist(domain.NewPipelineRecord("urn:pipe:1", "s", nil, "d", nil))

		require.NoError(t, err)
		assert.Equal(t, "urn_pipe_1.json", filepath.Base(path))
	})

	t.Run("persisting the same id overwrites the file", func(t *testing.T) {
		r := NewRegistry(t.TempDir())
		_, err := r.Persist(domain.NewPipelineRecord("dup", "first", nil, "d", nil))
		require.NoError(t, err)
		path, err := r.Persist(domain.NewPipelineRecord("dup", "second", nil, "d", nil))
		require.NoError(t, err)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "second")

		entries, err := os.ReadDir(r.WorkDir())
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("ids sharing a sanitized name do not overwrite each other", func(t *testing.T) {
		r := NewRegistry(t.TempDir())
		path, err := r.Persist(domain.NewPipelineRecord("a:b", "first", nil, "d", nil))
		require.NoError(t, err)

		_, err = r.Persist(domain.NewPipelineRecord("a_b", "second", nil, "d", nil))
		assert.ErrorIs(t, err, domain.ErrQueueConflict)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"a:b"`)
		assert.Contains(t, string(raw), "first")
	})

	t.Run("no temporary files are left behind", func(t *testing.T) {
		r := NewRegistry(t.TempDir())
		for _, id := range []string{"a", "b", "c"} {
			_, err := r.Persist(domain.NewPipelineRecord(id, "s", nil, "d", nil))
			require.NoError(t, err)
		}

		entries, err := os.ReadDir(r.WorkDir())
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), "."), e.Name())
		}
		assert.Len(t, entries, 3)
	})

	t.Run("invalid records are rejected", func(t *testing.T) {
		r := NewRegistry(t.TempDir())

		_, err := r.Persist(domain.NewPipelineRecord("", "s", nil, "d", nil))
		assert.Error(t, err)

		_, err = r.Persist(nil)
		assert.Error(t, err)
	})

	t.Run("unwritable work dir is an io error", func(t *testing.T) {
		base := t.TempDir()
		blocker := filepath.Join(base, "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
		r := NewRegistry(filepath.Join(blocker, "work"))

		_, err := r.Persist(domain.NewPipelineRecord("x", "s", nil, "d", nil))

		assert.ErrorIs(t, err, domain.ErrIO)
	})
}

func TestDecode(t *testing.T) {
	r := NewRegistry(t.TempDir())

	t.Run("valid record", func(t *testing.T) {
		record, err := r.Decode([]byte(`{"id":"p1","source":"s","transformers":["t"],"destination":"d","payload":{"data":[]}}`))
		require.NoError(t, err)
		assert.Equal(t, "p1", record.ID)
		assert.Equal(t, []string{"t"}, record.Transformers)
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{not json"},
		{"null", "null"},
		{"empty object", "{}"},
		{"unrelated object", `{"hello":1}`},
		{"array", "[1,2]"},
		{"empty transformer", `{"id":"p1","transformers":[""]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := r.Decode([]byte(tt.raw))
			assert.ErrorIs(t, err, domain.ErrDeserialization)
			assert.Nil(t, record)
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain-id", "plain-id"},
		{"a:b:c", "a_b_c"},
		{"../escape", "_._escape"},
		{"dir/name", "dir_name"},
		{`win\path`, "win_path"},
		{"q?*<>|\"", "q______"},
		{"tab\tnew\nline", "tab_new_line"},
		{".hidden", "_hidden"},
		{"mid.dot", "mid.dot"},
		{"ünïcode", "ünïcode"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), tt.in)
	}
}

func TestSnapshot(t *testing.T) {
	t.Run("missing directories are empty", func(t *testing.T) {
		snap, err := NewRegistry(filepath.Join(t.TempDir(), "absent")).Snapshot()

		require.NoError(t, err)
		assert.Equal(t, domain.QueueSnapshot{}, snap)
	})

	t.Run("counts files per directory", func(t *testing.T) {
		r := NewRegistry(t.TempDir())
		_, err := r.Persist(domain.NewPipelineRecord("a", "s", nil, "d", nil))
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(r.ProcessedDir(), 0o755))
		require.NoError(t, os.MkdirAll(r.FailedDir(), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(r.ProcessedDir(), "p1.json"), []byte("{}"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(r.ProcessedDir(), "p2.json"), []byte("{}"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(r.FailedDir(), "f.json"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(r.WorkDir(), ".pending-1"), []byte("x"), 0o644))

		snap, err := r.Snapshot()

		require.NoError(t, err)
		assert.Equal(t, domain.QueueSnapshot{Pending: 1, Processed: 2, Failed: 1}, snap)
	})
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(domain.NewPipelineRecord("id", "", nil, "", nil)))
	assert.Error(t, v.Validate(nil))
	assert.Error(t, v.Validate(domain.NewPipelineRecord("", "s", nil, "d", nil)))
	assert.Error(t, v.Validate(domain.NewPipelineRecord(strings.Repeat("x", maxIDLength+1), "s", nil, "d", nil)))
	assert.Error(t, v.Validate(domain.NewPipelineRecord("id", "s", []string{"decrypt", ""}, "d", nil)))
}
