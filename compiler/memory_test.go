package compiler

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestAllocator(t *testing.T) {
	a := NewAllocator()
	be.Equal(t, a.Next(), uint32(8))

	a.Align(4)
	be.Equal(t, a.Next(), uint32(8))

	be.Equal(t, a.Alloc(3), uint32(8))
	be.Equal(t, a.Next(), uint32(11))
	a.Align(4)
	be.Equal(t, a.Next(), uint32(12))
	a.Align(8)
	be.Equal(t, a.Next(), uint32(16))
	be.Equal(t, a.Alloc(0), uint32(16))
}

func TestStringPoolLayout(t *testing.T) {
	pool := NewStringPool(NewAllocator())

	hi := pool.Intern("Hi")
	be.Equal(t, hi, uint32(8))

	segments := pool.Segments()
	be.Equal(t, len(segments), 1)
	be.Equal(t, segments[0].Offset, uint32(8))
	be.Equal(t, segments[0].Data, []byte{
		16, 0, 0, 0, // pointer
		2, 0, 0, 0, // length
		'H', 'i',
	})

	// 8 + 10 = 18, aligned up to 20.
	abc := pool.Intern("abc")
	be.Equal(t, abc, uint32(20))
	be.Equal(t, pool.Segments()[1].Data[:8], []byte{28, 0, 0, 0, 3, 0, 0, 0})
}

func TestStringPoolDedup(t *testing.T) {
	alloc := NewAllocator()
	pool := NewStringPool(alloc)

	first := pool.Intern("Hi")
	next := alloc.Next()
	second := pool.Intern("Hi")

	be.Equal(t, first, second)
	be.Equal(t, alloc.Next(), next)
	be.Equal(t, len(pool.Segments()), 1)
}

func TestStringPoolEmptyAndUTF8(t *testing.T) {
	pool := NewStringPool(NewAllocator())

	empty := pool.Intern("")
	be.Equal(t, empty, uint32(8))
	be.Equal(t, pool.Segments()[0].Data, []byte{16, 0, 0, 0, 0, 0, 0, 0})

	// Lengths count bytes, not runes.
	pool.Intern("é")
	seg := pool.Segments()[1]
	be.Equal(t, seg.Offset, uint32(16))
	be.Equal(t, seg.Data[4], byte(2))
	be.Equal(t, len(seg.Data), 10)
}
