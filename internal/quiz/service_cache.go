package quiz

// Leaderboard cache helpers. Callers hold s.cacheMu.

func (s *Service) setCachedLeaderboard(entries []LeaderboardEntry, records []ResultRecord) {
	indexByUser := make(map[string]int, len(entries))
	for idx := range entries {
		indexByUser[entries[idx].Username] = idx
	}
	applied := make(map[string]struct{}, len(records))
	for _, record := range records {
		applied[record.AttemptID] = struct{}{}
	}

	s.leaderboardCache = &leaderboardCache{
		ordered:     entries,
		indexByUser: indexByUser,
		applied:     applied,
	}
}

func (s *Service) updateCachedLeaderboardAfterResult(record ResultRecord) {
	if record.Username == "" {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	// Not materialized yet; the next read rebuilds it from the repository.
	cache := s.leaderboardCache
	if cache == nil {
		return
	}
	// A rebuild between SaveResult and this patch already counted it.
	if _, done := cache.applied[record.AttemptID]; done {
		return
	}
	cache.applied[record.AttemptID] = struct{}{}

	idx, exists := cache.indexByUser[record.Username]
	if !exists {
		cache.ordered = append(cache.ordered, entryFromResult(record))
		idx = len(cache.ordered) - 1
		cache.indexByUser[record.Username] = idx
		bubbleLeaderboard(cache, idx)
		return
	}

	applyResult(&cache.ordered[idx], record)
	bubbleLeaderboard(cache, idx)
}

// buildLeaderboard keeps each user's best attempt.
func buildLeaderboard(records []ResultRecord) []LeaderboardEntry {
	cache := &leaderboardCache{indexByUser: make(map[string]int)}
	for _, record := range records {
		if record.Username == "" {
			continue
		}
		idx, exists := cache.indexByUser[record.Username]
		if !exists {
			cache.ordered = append(cache.ordered, entryFromResult(record))
			idx = len(cache.ordered) - 1
			cache.indexByUser[record.Username] = idx
		} else {
			applyResult(&cache.ordered[idx], record)
		}
		bubbleLeaderboard(cache, idx)
	}
	if cache.ordered == nil {
		return []LeaderboardEntry{}
	}
	return cache.ordered
}

func entryFromResult(record ResultRecord) LeaderboardEntry {
	return LeaderboardEntry{
		Username:    record.Username,
		Percentage:  record.Percentage,
		Attempts:    1,
		BestAt:      record.SubmittedAt,
		LastAttempt: record.SubmittedAt,
	}
}

func applyResult(entry *LeaderboardEntry, record ResultRecord) {
	entry.Attempts++
	if record.SubmittedAt.After(entry.LastAttempt) {
		entry.LastAttempt = record.SubmittedAt
	}
	if record.Percentage > entry.Percentage ||
		(record.Percentage == entry.Percentage && record.SubmittedAt.Before(entry.BestAt)) {
		entry.Percentage = record.Percentage
		entry.BestAt = record.SubmittedAt
	}
}

// bubbleLeaderboard restores ordering after one row changed, moving it only
// as far as needed instead of re-sorting.
func bubbleLeaderboard(cache *leaderboardCache, idx int) {
	for idx > 0 && leaderboardBefore(cache.ordered[idx], cache.ordered[idx-1]) {
		swapLeaderboardEntries(cache, idx, idx-1)
		idx--
	}

	for idx+1 < len(cache.ordered) && leaderboardBefore(cache.ordered[idx+1], cache.ordered[idx]) {
		swapLeaderboardEntries(cache, idx, idx+1)
		idx++
	}
}

func swapLeaderboardEntries(cache *leaderboardCache, i, j int) {
	cache.ordered[i], cache.ordered[j] = cache.ordered[j], cache.ordered[i]
	cache.indexByUser[cache.ordered[i].Username] = i
	cache.indexByUser[cache.ordered[j].Username] = j
}

func leaderboardBefore(a, b LeaderboardEntry) bool {
	// higher best score, then whoever reached it first, then username
	if a.Percentage != b.Percentage {
		return a.Percentage > b.Percentage
	}
	if !a.BestAt.Equal(b.BestAt) {
		return a.BestAt.Before(b.BestAt)
	}
	return a.Username < b.Username
}

func applyLeaderboardLimit(entries []LeaderboardEntry, limit int) []LeaderboardEntry {
	if limit <= 0 || limit >= len(entries) {
		return entries
	}
	return entries[:limit]
}
