// Package arena owns a bump allocator over one contiguous byte block.
//
// Ownership boundary:
// - push/mark/pop/clear over a fixed capacity
// - generation counter bumped on every Clear
//
// Memory returned by Push stays valid until the arena is cleared or popped
// below the allocation. Callers must not hold slices across a Clear.
package arena

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	// Align is the push alignment (pointer size).
	Align = bits.UintSize / 8

	KiB = 1 << 10
	MiB = 1 << 20
)

var (
	ErrOutOfMemory  = errors.New("arena: out of memory")
	ErrInvalidSize  = errors.New("arena: invalid size")
	ErrInvalidArena = errors.New("arena: invalid capacity")
)

// Mark is a rollback savepoint returned by Arena.Mark.
type Mark uint64

// Arena is a bump allocator. It is not safe for concurrent use.
type Arena struct {
	buf []byte
	pos uint64
	gen uint64
}

// New allocates an arena with capacity bytes of backing storage.
func New(capacity int) (*Arena, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidArena, capacity)
	}
	return &Arena{buf: make([]byte, capacity)}, nil
}

// Push returns size zeroed bytes starting at a pointer-aligned offset.
func (a *Arena) Push(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	aligned := alignForward(a.pos, Align)
	end := aligned + uint64(size)
	if end > uint64(len(a.buf)) {
		return nil, fmt.Errorf("%w: need=%d free=%d", ErrOutOfMemory, size, a.Free())
	}
	a.pos = end
	block := a.buf[aligned:end:end]
	clear(block)
	return block, nil
}

// Mark records the current position.
func (a *Arena) Mark() Mark {
	return Mark(a.pos)
}

// Pop moves the position to m. Marks are expected to be popped in LIFO
// order; this is not enforced.
func (a *Arena) Pop(m Mark) {
	a.pos = min(uint64(m), uint64(len(a.buf)))
}

// Clear resets the arena to its origin and starts a new generation.
func (a *Arena) Clear() {
	a.pos = 0
	a.gen++
}

// Len is the number of bytes in use, alignment padding included.
func (a *Arena) Len() int { return int(a.pos) }

// Cap is the fixed capacity.
func (a *Arena) Cap() int { return len(a.buf) }

// Free is the number of bytes left before alignment.
func (a *Arena) Free() int { return len(a.buf) - int(a.pos) }

// Generation counts how many times the arena has been cleared.
func (a *Arena) Generation() uint64 { return a.gen }

func alignForward(pos uint64, alignment uint64) uint64 {
	return (pos + (alignment - 1)) &^ (alignment - 1)
}
