package cache

// line is the metadata of one cache line. Tag and recency are meaningful
// only while valid is set.
type line struct {
	valid   bool
	tag     uint64
	recency uint64
}

// set is a window of exactly E lines inside the cache's line arena. Lines are
// never reordered; usage order lives in the recency counters.
type set []line

// lookup returns the index of the valid line holding tag.
func (s set) lookup(tag uint64) (int, bool) {
	for i := range s {
		if s[i].valid && s[i].tag == tag {
			return i, true
		}
	}
	return -1, false
}

// firstInvalid returns the lowest-indexed invalid line.
func (s set) firstInvalid() (int, bool) {
	for i := range s {
		if !s[i].valid {
			return i, true
		}
	}
	return -1, false
}

// maxRecency returns the largest recency among valid lines, or 0 when the set
// holds nothing.
func (s set) maxRecency() uint64 {
	var latest uint64
	for i := range s {
		if s[i].valid && s[i].recency > latest {
			latest = s[i].recency
		}
	}
	return latest
}

// fill installs tag into line i.
func (s set) fill(i int, tag uint64, recency uint64) {
	s[i] = line{valid: true, tag: tag, recency: recency}
}
