package utils

// SliceToSet converts a slice into a set for O(1) membership checks.
func SliceToSet[T comparable](items []T) map[T]struct{} {
	set := make(map[T]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
