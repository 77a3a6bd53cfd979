package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// maxReferenceBlockOffsetBits keeps the block size representable as an int
// for the Akita directory.
const maxReferenceBlockOffsetBits = 62

// ReferenceCache is a textbook LRU cache built on the Akita cache directory.
// A hit moves the block to the most-recently-used position, so it differs
// from Cache whenever the recency counters and true usage order disagree.
type ReferenceCache struct {
	geometry Geometry

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	stats Statistics
}

// NewReferenceCache creates an empty LRU cache of the given geometry.
func NewReferenceCache(geometry Geometry) (*ReferenceCache, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	if geometry.BlockOffsetBits > maxReferenceBlockOffsetBits {
		return nil, fmt.Errorf("%w: lru policy needs b <= %d, got %d",
			ErrInvalidGeometry, maxReferenceBlockOffsetBits,
			geometry.BlockOffsetBits)
	}

	return &ReferenceCache{
		geometry: geometry,
		directory: akitacache.NewDirectory(
			int(geometry.NumSets()),
			geometry.LinesPerSet,
			int(geometry.BlockSize()),
			akitacache.NewLRUVictimFinder(),
		),
	}, nil
}

// Geometry returns the cache geometry.
func (c *ReferenceCache) Geometry() Geometry {
	return c.geometry
}

// Stats returns cache statistics.
func (c *ReferenceCache) Stats() Statistics {
	return c.stats
}

// Reset invalidates all cache lines and clears statistics.
func (c *ReferenceCache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// Access looks up addr, updates the counters and returns what happened.
func (c *ReferenceCache) Access(addr uint64) Outcome {
	// The directory tags blocks by their block-aligned address.
	blockAddr := addr &^ (c.geometry.BlockSize() - 1)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.directory.Visit(block)
		c.stats.record(Hit)
		return Hit
	}

	outcome := MissFilled

	victim := c.directory.FindVictim(blockAddr)
	if victim.IsValid {
		outcome = MissEvicted
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	c.stats.record(outcome)

	return outcome
}
