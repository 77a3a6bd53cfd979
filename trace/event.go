// Package trace reads memory-access traces.
//
// A trace is a text file with one record per line:
//
//	<op> <hex-address>,<decimal-size>
//
// where op is I (instruction fetch), L (load), S (store) or M (modify).
package trace

import "fmt"

// Op is the operation code of a trace record.
type Op byte

// Operation codes.
const (
	OpInstruction Op = 'I'
	OpLoad        Op = 'L'
	OpStore       Op = 'S'
	OpModify      Op = 'M'
)

// Valid reports whether op is a known operation code.
func (op Op) Valid() bool {
	switch op {
	case OpInstruction, OpLoad, OpStore, OpModify:
		return true
	default:
		return false
	}
}

// Accesses returns how many data-cache accesses the operation performs.
func (op Op) Accesses() int {
	switch op {
	case OpLoad, OpStore:
		return 1
	case OpModify:
		return 2
	default:
		return 0
	}
}

func (op Op) String() string {
	return string(rune(op))
}

// Event is one decoded trace record. Size is carried but never affects the
// cache model.
type Event struct {
	Op      Op
	Address uint64
	Size    uint64

	// Line is the 1-based line number the record was read from, or 0 when
	// the event did not come from text.
	Line int
}

// String formats the event in trace syntax.
func (e Event) String() string {
	return fmt.Sprintf("%s %x,%d", e.Op, e.Address, e.Size)
}
