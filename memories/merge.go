package memories

import "sort"

// Merge combines the result sets of two storage accounts. Duplicates are
// detected by file name, not full path: the same photo synced to two
// accounts usually keeps its name but not its folder layout. First seen
// wins, so on a name collision the primary account's copy is kept.
//
// The combined set is re-sorted ascending by year; within a year primary
// matches come before secondary ones.
func Merge(primary, secondary []Match) []Match {
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	merged := make([]Match, 0, len(primary)+len(secondary))

	for _, m := range append(append([]Match{}, primary...), secondary...) {
		if _, dup := seen[m.Name]; dup {
			continue
		}
		seen[m.Name] = struct{}{}
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Year < merged[j].Year })
	return merged
}
