// Package diff computes an order-insensitive structural diff between two
// JSON-like values. Sequences compare as unordered multisets; differences are
// categorized as value changes, type changes, added items, and removed items.
// The portable map form mirrors the verbose diff layout the agent tasks'
// path-queries are written against.
package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags one change in the change tree.
type Kind string

const (
	KindValueChanged Kind = "value_changed"
	KindTypeChanged  Kind = "type_changed"
	KindKeyAdded     Kind = "key_added"
	KindKeyRemoved   Kind = "key_removed"
	KindItemAdded    Kind = "item_added"
	KindItemRemoved  Kind = "item_removed"
)

// Change is one difference between the two compared values.
type Change struct {
	Kind Kind
	Path string
	Old  any
	New  any

	// Textual type names, set for KindTypeChanged. Marker values are
	// stringified so the change tree stays purely data-interchangeable.
	OldType string
	NewType string
}

// Diff is the ordered list of changes between two values.
type Diff struct {
	Changes []Change
}

// Empty reports whether no differences were found.
func (d *Diff) Empty() bool {
	return d == nil || len(d.Changes) == 0
}

// Portable map form keys, grouped by category.
const (
	sectionValuesChanged = "values_changed"
	sectionTypeChanges   = "type_changes"
	sectionDictAdded     = "dictionary_item_added"
	sectionDictRemoved   = "dictionary_item_removed"
	sectionIterAdded     = "iterable_item_added"
	sectionIterRemoved   = "iterable_item_removed"
)

// ToMap converts the change tree to its portable data-interchange form:
// nested maps and scalars only, categories as top-level keys, paths in
// "root['key'][0]" notation. Empty categories are omitted.
func (d *Diff) ToMap() map[string]any {
	out := map[string]any{}
	if d == nil {
		return out
	}

	section := func(name string) map[string]any {
		m, ok := out[name].(map[string]any)
		if !ok {
			m = map[string]any{}
			out[name] = m
		}
		return m
	}

	for _, c := range d.Changes {
		switch c.Kind {
		case KindValueChanged:
			section(sectionValuesChanged)[c.Path] = map[string]any{
				"old_value": c.Old,
				"new_value": c.New,
			}
		case KindTypeChanged:
			section(sectionTypeChanges)[c.Path] = map[string]any{
				"old_type":  c.OldType,
				"new_type":  c.NewType,
				"old_value": c.Old,
				"new_value": c.New,
			}
		case KindKeyAdded:
			section(sectionDictAdded)[c.Path] = c.New
		case KindKeyRemoved:
			section(sectionDictRemoved)[c.Path] = c.Old
		case KindItemAdded:
			section(sectionIterAdded)[c.Path] = c.New
		case KindItemRemoved:
			section(sectionIterRemoved)[c.Path] = c.Old
		}
	}
	return out
}

// Compare diffs two JSON-like values. When either side is absent or empty the
// result is an empty diff, never a failure.
func Compare(first, last any) *Diff {
	d := &Diff{}
	if isEmptyState(first) || isEmptyState(last) {
		return d
	}
	compareValues(d, "root", normalize(first), normalize(last))
	sortChanges(d.Changes)
	return d
}

// isEmptyState reports whether a state is missing or carries no content.
func isEmptyState(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

func compareValues(d *Diff, path string, old, new any) {
	oldType, newType := typeName(old), typeName(new)
	if oldType != newType {
		d.Changes = append(d.Changes, Change{
			Kind:    KindTypeChanged,
			Path:    path,
			Old:     old,
			New:     new,
			OldType: oldType,
			NewType: newType,
		})
		return
	}

	switch o := old.(type) {
	case map[string]any:
		compareMaps(d, path, o, new.(map[string]any))
	case []any:
		compareSequences(d, path, o, new.([]any))
	default:
		if !scalarEqual(old, new) {
			d.Changes = append(d.Changes, Change{
				Kind: KindValueChanged,
				Path: path,
				Old:  old,
				New:  new,
			})
		}
	}
}

func compareMaps(d *Diff, path string, old, new map[string]any) {
	keys := make([]string, 0, len(old)+len(new))
	seen := map[string]bool{}
	for k := range old {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range new {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := fmt.Sprintf("%s['%s']", path, k)
		oldVal, inOld := old[k]
		newVal, inNew := new[k]
		switch {
		case inOld && inNew:
			compareValues(d, childPath, oldVal, newVal)
		case inNew:
			d.Changes = append(d.Changes, Change{Kind: KindKeyAdded, Path: childPath, New: newVal})
		default:
			d.Changes = append(d.Changes, Change{Kind: KindKeyRemoved, Path: childPath, Old: oldVal})
		}
	}
}

// compareSequences treats both sides as unordered multisets. Unmatched old
// elements are removals, unmatched new elements are additions; matched
// elements produce no changes regardless of position.
func compareSequences(d *Diff, path string, old, new []any) {
	used := make([]bool, len(new))

	for i, oldItem := range old {
		matched := false
		for j, newItem := range new {
			if used[j] {
				continue
			}
			if deepEqualUnordered(oldItem, newItem) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			d.Changes = append(d.Changes, Change{
				Kind: KindItemRemoved,
				Path: fmt.Sprintf("%s[%d]", path, i),
				Old:  oldItem,
			})
		}
	}

	for j, newItem := range new {
		if !used[j] {
			d.Changes = append(d.Changes, Change{
				Kind: KindItemAdded,
				Path: fmt.Sprintf("%s[%d]", path, j),
				New:  newItem,
			})
		}
	}
}

// deepEqualUnordered is structural equality with order-insensitive sequences.
func deepEqualUnordered(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if typeName(a) != typeName(b) {
		return false
	}

	switch av := a.(type) {
	case map[string]any:
		bv := b.(map[string]any)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, ok := bv[k]
			if !ok || !deepEqualUnordered(v, ov) {
				return false
			}
		}
		return true
	case []any:
		bv := b.([]any)
		if len(av) != len(bv) {
			return false
		}
		used := make([]bool, len(bv))
		for _, item := range av {
			found := false
			for j := range bv {
				if used[j] {
					continue
				}
				if deepEqualUnordered(item, bv[j]) {
					used[j] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return scalarEqual(a, b)
	}
}

func scalarEqual(a, b any) bool {
	return a == b
}

// typeName returns the portable textual name of a value's type.
func typeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		// Non-JSON values should not survive normalization; name them
		// rather than panic.
		return fmt.Sprintf("%T", t)
	}
}

// normalize coerces values into canonical JSON form so states loaded from
// different decoders (JSON, YAML) compare consistently.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// sortChanges orders changes by category then path so output is stable.
func sortChanges(changes []Change) {
	rank := map[Kind]int{
		KindValueChanged: 0,
		KindTypeChanged:  1,
		KindKeyAdded:     2,
		KindKeyRemoved:   3,
		KindItemAdded:    4,
		KindItemRemoved:  5,
	}
	sort.SliceStable(changes, func(i, j int) bool {
		if rank[changes[i].Kind] != rank[changes[j].Kind] {
			return rank[changes[i].Kind] < rank[changes[j].Kind]
		}
		return strings.Compare(changes[i].Path, changes[j].Path) < 0
	})
}
