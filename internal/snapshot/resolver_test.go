package snapshot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func snapshotValue(t *testing.T, timestamp int64, state any) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":        "ignored",
		"timestamp": timestamp,
		"state":     state,
	})
	require.NoError(t, err)
	return string(raw)
}

func metadataValue(t *testing.T, ids ...string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"snapshotIds": ids})
	require.NoError(t, err)
	return string(raw)
}

func basicDump(t *testing.T) Dump {
	t.Helper()
	return Dump{
		"myapp-TimeTravelDB-v3": {
			Stores: map[string][]Entry{
				"timetravel": {
					{Key: "timetravel-metadata", Value: metadataValue(t, "a", "b")},
					{Key: "a", Value: snapshotValue(t, 1000, map[string]any{"x": 1.0})},
					{Key: "b", Value: snapshotValue(t, 4000, map[string]any{"x": 2.0})},
				},
			},
		},
	}
}

func TestResolve(t *testing.T) {
	res, err := Resolve(basicDump(t))
	require.NoError(t, err)

	require.Equal(t, map[string]any{"x": 1.0}, res.FirstState)
	require.Equal(t, map[string]any{"x": 2.0}, res.LastState)
	require.Equal(t, int64(1000), res.FirstTimestamp)
	require.Equal(t, int64(4000), res.LastTimestamp)
	require.InDelta(t, 3.0, res.ElapsedSeconds(), 1e-9)
}

func TestResolveSnapshotIDOrderWins(t *testing.T) {
	// Store insertion order is reversed; snapshotIds order is canonical.
	dump := Dump{
		"TimeTravelDB": {
			Stores: map[string][]Entry{
				"timetravel": {
					{Key: "b", Value: snapshotValue(t, 9000, "after")},
					{Key: "a", Value: snapshotValue(t, 2000, "before")},
					{Key: "meta-metadata", Value: metadataValue(t, "a", "b")},
				},
			},
		},
	}

	res, err := Resolve(dump)
	require.NoError(t, err)
	require.Equal(t, "before", res.FirstState)
	require.Equal(t, "after", res.LastState)
}

func TestResolvePrefixedKeys(t *testing.T) {
	dump := Dump{
		"TimeTravelDB": {
			Stores: map[string][]Entry{
				"timetravel": {
					{Key: "metadata", Value: metadataValue(t, "a", "b")},
					{Key: "snapshot-a", Value: snapshotValue(t, 1000, 1.0)},
					{Key: "snapshot-b", Value: snapshotValue(t, 2000, 2.0)},
				},
			},
		},
	}

	res, err := Resolve(dump)
	require.NoError(t, err)
	require.Equal(t, 1.0, res.FirstState)
	require.Equal(t, 2.0, res.LastState)
}

func TestResolvePositionalFallback(t *testing.T) {
	// Metadata names ids that do not resolve; fall back to first/last
	// non-metadata entries in store order.
	dump := Dump{
		"TimeTravelDB": {
			Stores: map[string][]Entry{
				"timetravel": {
					{Key: "metadata", Value: metadataValue(t, "missing-1", "missing-2")},
					{Key: "snap-001", Value: snapshotValue(t, 100, "first")},
					{Key: "snap-002", Value: snapshotValue(t, 200, "middle")},
					{Key: "snap-003", Value: snapshotValue(t, 300, "last")},
				},
			},
		},
	}

	res, err := Resolve(dump)
	require.NoError(t, err)
	require.Equal(t, "first", res.FirstState)
	require.Equal(t, "last", res.LastState)
}

func TestResolveStructuredValues(t *testing.T) {
	// Entry values may already be decoded documents instead of JSON strings.
	dump := Dump{
		"TimeTravelDB": {
			Stores: map[string][]Entry{
				"timetravel": {
					{Key: "metadata", Value: map[string]any{"snapshotIds": []any{"a", "b"}}},
					{Key: "a", Value: map[string]any{"timestamp": float64(5000), "state": "s1"}},
					{Key: "b", Value: map[string]any{"timestamp": float64(2000), "state": "s2"}},
				},
			},
		},
	}

	res, err := Resolve(dump)
	require.NoError(t, err)
	require.Equal(t, "s1", res.FirstState)
	// Malformed input can yield a negative elapsed time; it is surfaced,
	// not rejected.
	require.InDelta(t, -3.0, res.ElapsedSeconds(), 1e-9)
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name    string
		dump    Dump
		wantErr error
		message string
	}{
		{
			name:    "empty dump",
			dump:    Dump{},
			wantErr: ErrNotFound,
			message: "no db",
		},
		{
			name: "no marker database",
			dump: Dump{
				"SomeOtherDB": {Stores: map[string][]Entry{"timetravel": {{Key: "a"}}}},
			},
			wantErr: ErrNotFound,
			message: "no db",
		},
		{
			name: "missing store",
			dump: Dump{
				"TimeTravelDB": {Stores: map[string][]Entry{"other": {{Key: "a"}}}},
			},
			wantErr: ErrNotFound,
			message: "no store",
		},
		{
			name: "empty store",
			dump: Dump{
				"TimeTravelDB": {Stores: map[string][]Entry{"timetravel": {}}},
			},
			wantErr: ErrNotFound,
			message: "no store",
		},
		{
			name: "missing metadata entry",
			dump: Dump{
				"TimeTravelDB": {Stores: map[string][]Entry{"timetravel": {
					{Key: "a", Value: "{}"},
				}}},
			},
			wantErr: ErrNotFound,
			message: "no metadata",
		},
		{
			name: "metadata not parseable",
			dump: Dump{
				"TimeTravelDB": {Stores: map[string][]Entry{"timetravel": {
					{Key: "metadata", Value: "not json"},
					{Key: "a", Value: "{}"},
				}}},
			},
			wantErr: ErrInvalid,
			message: "no ids",
		},
		{
			name: "single snapshot id",
			dump: Dump{
				"TimeTravelDB": {Stores: map[string][]Entry{"timetravel": {
					{Key: "metadata", Value: `{"snapshotIds":["only"]}`},
					{Key: "only", Value: "{}"},
				}}},
			},
			wantErr: ErrInvalid,
			message: "no ids",
		},
		{
			name: "fallback has too few snapshots",
			dump: Dump{
				"TimeTravelDB": {Stores: map[string][]Entry{"timetravel": {
					{Key: "metadata", Value: `{"snapshotIds":["x","y"]}`},
					{Key: "a", Value: "{}"},
				}}},
			},
			wantErr: ErrInvalid,
			message: "not enough snapshots",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.dump)
			require.ErrorIs(t, err, tt.wantErr)
			require.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestEntryUnmarshalNumericKey(t *testing.T) {
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{"key": 42, "value": "v"}`), &e))
	require.Equal(t, "42", e.Key)
}

func TestLoadDump(t *testing.T) {
	dump := basicDump(t)
	raw, err := json.Marshal(dump)
	require.NoError(t, err)

	dir := t.TempDir()

	t.Run("plain json", func(t *testing.T) {
		path := filepath.Join(dir, "dump.json")
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		loaded, err := LoadDump(path)
		require.NoError(t, err)

		res, err := Resolve(loaded)
		require.NoError(t, err)
		require.InDelta(t, 3.0, res.ElapsedSeconds(), 1e-9)
	})

	t.Run("gzipped json", func(t *testing.T) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write(raw)
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		path := filepath.Join(dir, "dump.json.gz")
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

		loaded, err := LoadDump(path)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDump(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
	})
}
