package domain

// Delta returns the feed rows not yet present in history, stamped with accessedAt.
//
// History is seeded first so a known incident always keeps its original
// accessed_at. Within the feed the first occurrence of an identity wins.
// The result preserves feed order.
func Delta(history []Incident, feed []FeedRow, accessedAt string) []Incident {
	seen := make(map[IdentityKey]struct{}, len(history)+len(feed))
	for i := range history {
		seen[history[i].Key()] = struct{}{}
	}

	var fresh []Incident
	for _, row := range feed {
		inc := FromFeedRow(row, accessedAt)
		key := inc.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, inc)
	}
	return fresh
}
