package reorder

// Derive returns the order obtained by dropping movedID onto targetID.
// movedID is removed and reinserted at the index targetID held before the removal.
// current is returned as is when either id is missing or both are the same.
func Derive(current []string, movedID, targetID string) []string {
	if movedID == targetID {
		return current
	}
	from, to := -1, -1
	for i, id := range current {
		switch id {
		case movedID:
			from = i
		case targetID:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return current
	}

	next := make([]string, 0, len(current))
	next = append(next, current[:from]...)
	next = append(next, current[from+1:]...)
	next = append(next[:to], append([]string{movedID}, next[to:]...)...)
	return next
}

// isPermutation reports whether a and b hold the same unique identifiers.
func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clone(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append(make([]string, 0, len(ids)), ids...)
}
