// Package snapshot resolves the before/after application-state pair out of a
// raw browser storage dump. The agent runtime records state snapshots in an
// IndexedDB database whose name contains "TimeTravelDB"; the "timetravel"
// store inside it holds the snapshots plus a metadata record that defines
// their canonical chronological order.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	databaseMarker    = "TimeTravelDB"
	storeName         = "timetravel"
	metadataKeyMarker = "metadata"
	snapshotKeyPrefix = "snapshot-"
)

// ErrNotFound covers missing structural pieces of the dump (database, store,
// metadata record). ErrInvalid covers pieces that exist but cannot be used.
var (
	ErrNotFound = errors.New("snapshot log not found")
	ErrInvalid  = errors.New("snapshot log invalid")
)

// Entry is one key/value record in an object store.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// UnmarshalJSON accepts non-string keys (IndexedDB keys may be numbers) and
// stores their textual form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key   any `json:"key"`
		Value any `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch k := raw.Key.(type) {
	case string:
		e.Key = k
	case nil:
		e.Key = ""
	default:
		e.Key = fmt.Sprint(k)
	}
	e.Value = raw.Value
	return nil
}

// Database mirrors one captured IndexedDB database.
type Database struct {
	Version int                `json:"version,omitempty"`
	Stores  map[string][]Entry `json:"stores"`
}

// Dump maps database name to captured content. It is the raw collaborator
// input; the resolver never mutates it.
type Dump map[string]Database

// Resolved holds the chronologically first and last snapshot of a run.
type Resolved struct {
	FirstState any
	LastState  any

	// Epoch milliseconds, as recorded by the runtime.
	FirstTimestamp int64
	LastTimestamp  int64
}

// ElapsedSeconds returns the wall time between the two snapshots. It may be
// negative on malformed input; callers surface that as an anomaly.
func (r *Resolved) ElapsedSeconds() float64 {
	return float64(r.LastTimestamp-r.FirstTimestamp) / 1000.0
}

// snapshotDocument is the parsed form of one snapshot entry value.
type snapshotDocument struct {
	Timestamp int64 `json:"timestamp" mapstructure:"timestamp"`
	State     any   `json:"state" mapstructure:"state"`
}

type storeMetadata struct {
	SnapshotIDs []string `json:"snapshotIds" mapstructure:"snapshotIds"`
}

// Resolve locates the timetravel store in the dump and returns the first and
// last snapshot according to the metadata's snapshotIds order. Store insertion
// order is only used as a positional fallback when ids cannot be resolved.
func Resolve(dump Dump) (*Resolved, error) {
	store, err := findStore(dump)
	if err != nil {
		return nil, err
	}

	ids, err := findSnapshotIDs(store)
	if err != nil {
		return nil, err
	}

	firstEntry := findEntryByID(store, ids[0])
	lastEntry := findEntryByID(store, ids[len(ids)-1])

	if firstEntry == nil || lastEntry == nil {
		firstEntry, lastEntry = positionalFallback(store)
		if firstEntry == nil || lastEntry == nil {
			return nil, fmt.Errorf("%w: not enough snapshots", ErrInvalid)
		}
	}

	first, err := parseSnapshot(firstEntry.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: first snapshot: %v", ErrInvalid, err)
	}
	last, err := parseSnapshot(lastEntry.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: last snapshot: %v", ErrInvalid, err)
	}

	return &Resolved{
		FirstState:     first.State,
		LastState:      last.State,
		FirstTimestamp: first.Timestamp,
		LastTimestamp:  last.Timestamp,
	}, nil
}

// findStore selects the marker database and its timetravel store.
func findStore(dump Dump) ([]Entry, error) {
	var db *Database
	for name := range dump {
		if strings.Contains(name, databaseMarker) {
			d := dump[name]
			db = &d
			break
		}
	}
	if db == nil {
		return nil, fmt.Errorf("%w: no db", ErrNotFound)
	}

	store := db.Stores[storeName]
	if len(store) == 0 {
		return nil, fmt.Errorf("%w: no store", ErrNotFound)
	}
	return store, nil
}

// findSnapshotIDs extracts the ordered snapshot id list from the metadata
// entry. The metadata entry is identified by substring match on its key.
func findSnapshotIDs(store []Entry) ([]string, error) {
	var metaEntry *Entry
	for i := range store {
		if strings.Contains(store[i].Key, metadataKeyMarker) {
			metaEntry = &store[i]
			break
		}
	}
	if metaEntry == nil {
		return nil, fmt.Errorf("%w: no metadata", ErrNotFound)
	}

	var meta storeMetadata
	if err := decodeValue(metaEntry.Value, &meta); err != nil {
		return nil, fmt.Errorf("%w: no ids", ErrInvalid)
	}
	if len(meta.SnapshotIDs) < 2 {
		return nil, fmt.Errorf("%w: no ids", ErrInvalid)
	}
	return meta.SnapshotIDs, nil
}

// findEntryByID looks up a snapshot entry by exact key, then by the
// "snapshot-" prefixed form.
func findEntryByID(store []Entry, id string) *Entry {
	for i := range store {
		if store[i].Key == id {
			return &store[i]
		}
	}
	prefixed := snapshotKeyPrefix + id
	for i := range store {
		if store[i].Key == prefixed {
			return &store[i]
		}
	}
	return nil
}

// positionalFallback returns the first and last non-metadata entries in store
// order, or nils when fewer than two exist.
func positionalFallback(store []Entry) (*Entry, *Entry) {
	var snaps []*Entry
	for i := range store {
		if strings.Contains(store[i].Key, metadataKeyMarker) {
			continue
		}
		snaps = append(snaps, &store[i])
	}
	if len(snaps) < 2 {
		return nil, nil
	}
	return snaps[0], snaps[len(snaps)-1]
}

func parseSnapshot(value any) (*snapshotDocument, error) {
	var doc snapshotDocument
	if err := decodeValue(value, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// decodeValue handles both representations a dump may use for entry values:
// a JSON string (the runtime serializes values before storing) or an already
// structured document.
func decodeValue(value any, out any) error {
	switch v := value.(type) {
	case string:
		return json.Unmarshal([]byte(v), out)
	case map[string]any:
		cfg := &mapstructure.DecoderConfig{
			Result:           out,
			TagName:          "mapstructure",
			WeaklyTypedInput: true,
		}
		dec, err := mapstructure.NewDecoder(cfg)
		if err != nil {
			return err
		}
		return dec.Decode(v)
	case nil:
		return errors.New("value is null")
	default:
		return fmt.Errorf("unsupported value type %T", value)
	}
}
