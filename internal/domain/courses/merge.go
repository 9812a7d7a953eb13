package courses

// MergeCatalog folds a re-fetched catalogue into the cached one. Matching ids
// are replaced in place, new ids are appended, and nothing already cached is
// dropped. Local sync timestamps survive when the fetch leaves them unset.
func MergeCatalog(existing, fetched []Course) (merged []Course, created, updated int) {
	merged = make([]Course, len(existing), len(existing)+len(fetched))
	copy(merged, existing)

	index := make(map[RefID]int, len(merged))
	for i, c := range merged {
		index[c.ID] = i
	}

	for _, f := range fetched {
		if f.ID == "" {
			continue
		}
		if i, ok := index[f.ID]; ok {
			if f.SyncedAt.IsZero() {
				f.SyncedAt = merged[i].SyncedAt
			}
			merged[i] = f
			updated++
			continue
		}
		index[f.ID] = len(merged)
		merged = append(merged, f)
		created++
	}
	return merged, created, updated
}
