// Package cache models a set-associative cache at the metadata level: which
// block each line holds and how recently it was used. No data is stored.
package cache

import "fmt"

// Outcome is the result of a single cache access.
type Outcome int

const (
	// Hit means a valid line already held the block.
	Hit Outcome = iota
	// MissFilled means the block was installed into an invalid line.
	MissFilled
	// MissEvicted means the block replaced a valid line of a full set.
	MissEvicted
)

// String returns the outcome's verbose tokens joined by a space.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case MissFilled:
		return "miss"
	case MissEvicted:
		return "miss eviction"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Tokens returns the words echoed for the outcome in verbose mode.
func (o Outcome) Tokens() []string {
	switch o {
	case Hit:
		return []string{"hit"}
	case MissFilled:
		return []string{"miss"}
	case MissEvicted:
		return []string{"miss", "eviction"}
	default:
		return nil
	}
}

// IsHit reports whether the outcome counts as a hit.
func (o Outcome) IsHit() bool {
	return o == Hit
}

// Statistics holds the running counters of a cache.
type Statistics struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Accesses returns the number of accesses the counters account for.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns hits over accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

func (s *Statistics) record(o Outcome) {
	switch o {
	case Hit:
		s.Hits++
	case MissFilled:
		s.Misses++
	case MissEvicted:
		s.Misses++
		s.Evictions++
	}
}

// Cache is a set-associative cache that replaces lines by per-line recency
// counters.
//
// A hit bumps only the hit line's own counter by one. A fill sets the line's
// counter to one past the newest valid line in its set. The victim of a full
// set is the line with the smallest counter, lowest index first. This
// approximates LRU: a line hit many times can still fall behind a line that
// was refilled once on top of a large counter.
type Cache struct {
	geometry Geometry

	// lines holds every set back to back; set i is
	// lines[i*E : (i+1)*E].
	lines []line

	stats Statistics
}

// New creates a cache with every line invalid.
func New(geometry Geometry) (*Cache, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	total := geometry.NumSets() * uint64(geometry.LinesPerSet)

	return &Cache{
		geometry: geometry,
		lines:    make([]line, total),
	}, nil
}

// Geometry returns the cache geometry.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Reset invalidates all cache lines and clears statistics.
func (c *Cache) Reset() {
	for i := range c.lines {
		c.lines[i] = line{}
	}
	c.stats = Statistics{}
}

func (c *Cache) set(index uint64) set {
	ways := uint64(c.geometry.LinesPerSet)
	return set(c.lines[index*ways : (index+1)*ways])
}

// Access looks up addr, updates the counters and returns what happened.
func (c *Cache) Access(addr uint64) Outcome {
	tag, setIndex := c.geometry.Decode(addr)
	s := c.set(setIndex)

	outcome := c.access(s, tag)
	c.stats.record(outcome)

	return outcome
}

func (c *Cache) access(s set, tag uint64) Outcome {
	if i, ok := s.lookup(tag); ok {
		s[i].recency++
		return Hit
	}

	if i, ok := s.firstInvalid(); ok {
		s.fill(i, tag, s.maxRecency()+1)
		return MissFilled
	}

	victim, latest := selectVictim(s)
	s.fill(victim, tag, latest+1)

	return MissEvicted
}
