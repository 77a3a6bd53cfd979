package cache

import (
	"errors"
	"fmt"
)

// MaxSetIndexBits bounds the number of sets a model preallocates.
const MaxSetIndexBits = 24

// MaxLines bounds the total number of lines (2^s * E) a model preallocates.
const MaxLines = 1 << 26

// AddressBits is the width of a simulated address.
const AddressBits = 64

// ErrInvalidGeometry is wrapped by every geometry validation failure.
var ErrInvalidGeometry = errors.New("invalid cache geometry")

// Geometry describes the shape of a set-associative cache.
type Geometry struct {
	// SetIndexBits (s) is log2 of the number of sets.
	SetIndexBits int `json:"s"`

	// LinesPerSet (E) is the associativity.
	LinesPerSet int `json:"E"`

	// BlockOffsetBits (b) is log2 of the block size in bytes. Blocks are
	// never materialized; the offset bits only shift the set index.
	BlockOffsetBits int `json:"b"`
}

// NumSets returns 2^s.
func (g Geometry) NumSets() uint64 {
	return 1 << uint(g.SetIndexBits)
}

// BlockSize returns 2^b.
func (g Geometry) BlockSize() uint64 {
	return 1 << uint(g.BlockOffsetBits)
}

// Validate checks that a model can be built from the geometry.
func (g Geometry) Validate() error {
	if g.LinesPerSet < 1 {
		return fmt.Errorf("%w: lines per set must be >= 1, got %d",
			ErrInvalidGeometry, g.LinesPerSet)
	}
	if g.SetIndexBits < 0 || g.BlockOffsetBits < 0 {
		return fmt.Errorf("%w: bit widths must be >= 0, got s=%d b=%d",
			ErrInvalidGeometry, g.SetIndexBits, g.BlockOffsetBits)
	}
	if g.SetIndexBits > MaxSetIndexBits {
		return fmt.Errorf("%w: set index bits must be <= %d, got %d",
			ErrInvalidGeometry, MaxSetIndexBits, g.SetIndexBits)
	}
	if g.LinesPerSet > MaxLines || g.NumSets()*uint64(g.LinesPerSet) > MaxLines {
		return fmt.Errorf("%w: 2^s*E must be <= %d lines, got s=%d E=%d",
			ErrInvalidGeometry, MaxLines, g.SetIndexBits, g.LinesPerSet)
	}
	if g.SetIndexBits+g.BlockOffsetBits > AddressBits {
		return fmt.Errorf("%w: s+b must be <= %d, got %d",
			ErrInvalidGeometry, AddressBits, g.SetIndexBits+g.BlockOffsetBits)
	}
	return nil
}

// String formats the geometry the way the command line spells it.
func (g Geometry) String() string {
	return fmt.Sprintf("s=%d E=%d b=%d",
		g.SetIndexBits, g.LinesPerSet, g.BlockOffsetBits)
}

// Decode splits an address into its tag and set index. Shifts of 64 or more
// yield zero, so a geometry with s+b = 64 maps every address to tag 0.
func (g Geometry) Decode(addr uint64) (tag, setIndex uint64) {
	setIndex = (addr >> uint(g.BlockOffsetBits)) & (g.NumSets() - 1)
	tag = addr >> uint(g.SetIndexBits+g.BlockOffsetBits)
	return tag, setIndex
}
