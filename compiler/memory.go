package compiler

import "encoding/binary"

// reservedBytes is scratch space at address 0 where the host write call
// stores its byte count.
const reservedBytes = 8

// descriptorSize is the {pointer, length} header in front of string bytes.
const descriptorSize = 8

// Segment is part of the initial linear-memory image.
type Segment struct {
	Offset uint32
	Data   []byte
}

// Allocator is a bump allocator over linear memory. Nothing is ever freed.
type Allocator struct {
	next uint32
}

func NewAllocator() *Allocator {
	return &Allocator{next: reservedBytes}
}

// Next is the address the next allocation would return.
func (a *Allocator) Next() uint32 {
	return a.next
}

// Align advances to the next multiple of n. It does nothing if the pointer is
// already aligned.
func (a *Allocator) Align(n uint32) {
	if rem := a.next % n; rem != 0 {
		a.next += n - rem
	}
}

func (a *Allocator) Alloc(size uint32) uint32 {
	addr := a.next
	a.next += size
	return addr
}

// StringPool lays out string constants in memory, once per distinct text.
type StringPool struct {
	alloc    *Allocator
	addrs    map[string]uint32
	segments []Segment
}

func NewStringPool(alloc *Allocator) *StringPool {
	return &StringPool{alloc: alloc, addrs: make(map[string]uint32)}
}

// Intern returns the address of the descriptor for s, laying out
//
//	addr+0: u32 pointer to the bytes (addr+8)
//	addr+4: u32 length in bytes
//	addr+8: the UTF-8 bytes
//
// the first time s is seen.
func (p *StringPool) Intern(s string) uint32 {
	if addr, ok := p.addrs[s]; ok {
		return addr
	}
	p.alloc.Align(4)
	addr := p.alloc.Alloc(uint32(len(s)) + descriptorSize)

	data := make([]byte, descriptorSize+len(s))
	binary.LittleEndian.PutUint32(data[0:4], addr+descriptorSize)
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(s)))
	copy(data[descriptorSize:], s)

	p.segments = append(p.segments, Segment{Offset: addr, Data: data})
	p.addrs[s] = addr
	return addr
}

// Segments returns the laid-out strings in allocation order.
func (p *StringPool) Segments() []Segment {
	return p.segments
}
