package schema

import (
	"sort"
	"strconv"
	"strings"
)

// Normalizer repairs the declared array-typed fields after any step that may
// have produced a structurally wrong shape — most commonly the LLM emitting
// {"0": {...}, "1": {...}} where a list belongs, or a bare string where a
// one-element list belongs. Normalization is idempotent.
type Normalizer struct {
	fields []ArrayField
}

func NewNormalizer(cat *Catalogue) *Normalizer {
	return &Normalizer{fields: cat.ArrayFields}
}

// Normalize repairs rec in place. After it returns, every declared array
// field either resolves to a sequence or is absent.
func (n *Normalizer) Normalize(rec map[string]any) {
	for _, f := range n.fields {
		for _, loc := range resolveParents(rec, strings.Split(f.Path, ".")) {
			repairArrayField(loc.parent, loc.key, f.Records)
		}
	}

	// The Sample collection is rejected downstream if it survives as a
	// mapping, so force-wrap it regardless of how it got that shape.
	if m, isMap := rec["Sample"].(map[string]any); isMap {
		rec["Sample"] = []any{m}
	}
}

type fieldLoc struct {
	parent map[string]any
	key    string
}

// resolveParents walks a declared path down to the parent container(s) of
// its final segment, expanding "*" over sequence elements. Unresolvable
// branches are skipped silently.
func resolveParents(node any, segs []string) []fieldLoc {
	if len(segs) == 1 {
		if m, isMap := node.(map[string]any); isMap {
			return []fieldLoc{{parent: m, key: segs[0]}}
		}
		return nil
	}
	head, rest := segs[0], segs[1:]
	if head == "*" {
		arr, isArr := node.([]any)
		if !isArr {
			return nil
		}
		var out []fieldLoc
		for _, el := range arr {
			out = append(out, resolveParents(el, rest)...)
		}
		return out
	}
	m, isMap := node.(map[string]any)
	if !isMap {
		return nil
	}
	child, ok := m[head]
	if !ok {
		return nil
	}
	return resolveParents(child, rest)
}

func repairArrayField(parent map[string]any, key string, records bool) {
	val, ok := parent[key]
	if !ok {
		return
	}
	switch v := val.(type) {
	case map[string]any:
		if arr, ok := numericKeyedToSlice(v); ok {
			parent[key] = arr
		} else if records {
			parent[key] = []any{v}
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			parent[key] = []any{}
		} else {
			parent[key] = []any{trimmed}
		}
	}
}

// numericKeyedToSlice converts a mapping whose keys are all decimal-digit
// strings into a slice ordered by numeric key ascending. ok is false when
// any key is non-numeric (the mapping is left for the caller to judge).
func numericKeyedToSlice(m map[string]any) ([]any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	type kv struct {
		idx int
		val any
	}
	entries := make([]kv, 0, len(m))
	for k, v := range m {
		if !isDigits(k) {
			return nil, false
		}
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, false
		}
		entries = append(entries, kv{idx: i, val: v})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].idx < entries[b].idx })
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.val)
	}
	return out, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

