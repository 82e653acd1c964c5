package schema

import (
	"strconv"
	"strings"
)

// Get resolves a dot-separated path against a record tree of
// map[string]any / []any nodes. A numeric segment indexes into the current
// node only when that node is a sequence; against a mapping it is a literal
// key lookup (the schema mixes array indices and numeric-looking keys, so
// both interpretations are needed). Resolution fails softly: the second
// return is false when any segment cannot be followed.
func Get(root any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		if cur == nil {
			return nil, false
		}
		if name, idx, ok := splitIndexSegment(seg); ok {
			m, isMap := cur.(map[string]any)
			if !isMap {
				return nil, false
			}
			arr, isArr := m[name].([]any)
			if !isArr || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
			continue
		}
		switch node := cur.(type) {
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at path, creating intermediate containers on demand:
// missing mapping keys become empty mappings, bracket segments (name[idx])
// coerce the named field to a sequence and grow it to cover idx, and a plain
// numeric segment indexes into an existing sequence. Silently returns when
// root is nil, path is empty, or an index cannot be parsed.
func Set(root map[string]any, path string, value any) {
	if root == nil || path == "" {
		return
	}
	setInMap(root, strings.Split(path, "."), value)
}

func setInMap(m map[string]any, segs []string, value any) {
	head := segs[0]

	if name, idx, ok := splitIndexSegment(head); ok {
		if idx < 0 {
			return
		}
		arr, _ := m[name].([]any) // wrong type or absent → start fresh
		if len(segs) == 1 {
			for len(arr) <= idx {
				arr = append(arr, nil)
			}
			arr[idx] = value
			m[name] = arr
			return
		}
		for len(arr) <= idx {
			arr = append(arr, map[string]any{})
		}
		elem, isMap := arr[idx].(map[string]any)
		if !isMap {
			elem = map[string]any{}
			arr[idx] = elem
		}
		m[name] = arr
		setInMap(elem, segs[1:], value)
		return
	}

	// A bracket segment whose index failed to parse is dropped rather
	// than written as a literal key.
	if open := strings.IndexByte(head, '['); open > 0 && strings.HasSuffix(head, "]") {
		return
	}

	if len(segs) == 1 {
		m[head] = value
		return
	}

	// A numeric next segment descends into an existing sequence; otherwise
	// numeric-looking segments are ordinary keys.
	if idx, err := strconv.Atoi(segs[1]); err == nil && idx >= 0 {
		if arr, isArr := m[head].([]any); isArr {
			if len(segs) == 2 {
				for len(arr) <= idx {
					arr = append(arr, nil)
				}
				arr[idx] = value
				m[head] = arr
				return
			}
			for len(arr) <= idx {
				arr = append(arr, map[string]any{})
			}
			elem, isMap := arr[idx].(map[string]any)
			if !isMap {
				elem = map[string]any{}
				arr[idx] = elem
			}
			m[head] = arr
			setInMap(elem, segs[2:], value)
			return
		}
	}

	child, isMap := m[head].(map[string]any)
	if !isMap {
		child = map[string]any{}
		m[head] = child
	}
	setInMap(child, segs[1:], value)
}

// splitIndexSegment parses bracket-index notation ("Sample[0]") into the
// field name and index. ok is false for plain segments and unparseable
// indices.
func splitIndexSegment(seg string) (name string, idx int, ok bool) {
	open := strings.IndexByte(seg, '[')
	if open <= 0 || !strings.HasSuffix(seg, "]") {
		return "", 0, false
	}
	i, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil {
		return "", 0, false
	}
	return seg[:open], i, true
}

func joinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}
