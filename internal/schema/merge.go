package schema

// Merge folds an extraction fragment into a target record, in place. The
// fragment may be arbitrarily malformed relative to the target: containers
// of the wrong type are re-initialized, target sequences are grown to cover
// the source before any indexed write, and scalars overwrite unconditionally
// (last extraction wins). Keys present in the target but absent from the
// source are never touched, and no single malformed sub-field stops the
// merge of its siblings.
func Merge(dst, src map[string]any) {
	mergeAt(dst, src)
}

func mergeAt(dst, src map[string]any) {
	for k, v := range src {
		switch sv := v.(type) {
		case map[string]any:
			dm, isMap := dst[k].(map[string]any)
			if !isMap {
				dm = map[string]any{}
				dst[k] = dm
			}
			mergeAt(dm, sv)
		case []any:
			dst[k] = mergeSlice(dst[k], sv)
		default:
			dst[k] = v
		}
	}
}

func mergeSlice(dstVal any, src []any) []any {
	dst, _ := dstVal.([]any) // wrong type or absent → start fresh
	dst = growTo(dst, len(src), sliceOfMaps(src))
	for i, el := range src {
		if em, isMap := el.(map[string]any); isMap {
			tm, ok := dst[i].(map[string]any)
			if !ok {
				tm = map[string]any{}
				dst[i] = tm
			}
			mergeAt(tm, em)
		} else {
			dst[i] = el
		}
	}
	return dst
}

// growTo extends arr with placeholders until it has at least n elements.
// Ensuring capacity before every indexed write is what keeps the merge from
// ever tripping on a short target array.
func growTo(arr []any, n int, mapElems bool) []any {
	for len(arr) < n {
		if mapElems {
			arr = append(arr, map[string]any{})
		} else {
			arr = append(arr, nil)
		}
	}
	return arr
}

func sliceOfMaps(arr []any) bool {
	for _, el := range arr {
		if _, isMap := el.(map[string]any); isMap {
			return true
		}
	}
	return false
}

// DeepCopy clones a record tree so merges can run on a private working copy.
func DeepCopy(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, c := range node {
			out[k] = DeepCopy(c)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, c := range node {
			out[i] = DeepCopy(c)
		}
		return out
	default:
		return v
	}
}
