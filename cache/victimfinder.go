package cache

// selectVictim picks the line to replace in a full set along with the newest
// recency in the set. The oldest line wins; on a tie the lowest index wins
// because the minimum is only replaced by a strictly smaller value.
func selectVictim(s set) (victim int, latest uint64) {
	oldest := s[0].recency
	latest = s[0].recency

	for i := 1; i < len(s); i++ {
		r := s[i].recency
		if r < oldest {
			victim = i
			oldest = r
		}
		if r > latest {
			latest = r
		}
	}

	return victim, latest
}
