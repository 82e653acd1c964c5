package repository

import "fmt"

// argPair appends limit and offset to args and returns the matching
// LIMIT/OFFSET clause given the number of placeholders already used.
func argPair(used int, args *[]any, limit, offset int) string {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	*args = append(*args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", used+1, used+2)
}
