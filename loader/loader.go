// Package loader places an application's entry code segment in guest memory.
//
// CODE resource 0 of a classic application is the jump table. Its 16-byte
// header is followed by 8-byte entries; an unloaded entry reads
//
//	offset; MOVE.W #segment,-(SP); _LoadSeg
//
// Only the first entry is resolved. Later segments are never loaded.
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Urethramancer/m68kmac/memmgr"
	"github.com/Urethramancer/m68kmac/rsrc"
)

const (
	headerSize = 16
	entrySize  = 8
	// segmentHeader precedes the code of every CODE segment other than 0:
	// the offset of its first jump table entry and the entry count.
	segmentHeader = 4

	opMoveWImm  = 0x3F3C
	trapLoadSeg = 0xA9F0
)

// CodeType is the resource type of code segments.
var CodeType = rsrc.MustType("CODE")

var (
	// ErrNoExecutableCode is returned when the jump table or the entry
	// segment is missing.
	ErrNoExecutableCode = errors.New("no executable 68k code")
	// ErrMalformedJumpTable is returned when the first jump table entry
	// does not have the unloaded-entry layout.
	ErrMalformedJumpTable = errors.New("malformed jump table")
)

// Heap allocates the segment.
type Heap interface {
	NewHandle(size uint32) (memmgr.Handle, error)
	Deref(h memmgr.Handle) (uint32, error)
}

// Memory receives the segment bytes.
type Memory interface {
	WriteBlock(addr uint32, data []byte) error
}

// JumpTable is the decoded header and first entry of CODE 0.
type JumpTable struct {
	AboveA5 uint32
	BelowA5 uint32
	Size    uint32
	// Offset is the offset of the jump table from A5.
	Offset uint32

	Segment     int16
	EntryOffset uint16
}

// ParseJumpTable decodes CODE 0.
func ParseJumpTable(data []byte) (*JumpTable, error) {
	if len(data) < headerSize+entrySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedJumpTable, len(data))
	}
	be := binary.BigEndian
	e := data[headerSize : headerSize+entrySize]
	if be.Uint16(e[2:]) != opMoveWImm || be.Uint16(e[6:]) != trapLoadSeg {
		return nil, fmt.Errorf("%w: first entry is % X", ErrMalformedJumpTable, e)
	}
	return &JumpTable{
		AboveA5:     be.Uint32(data[0:]),
		BelowA5:     be.Uint32(data[4:]),
		Size:        be.Uint32(data[8:]),
		Offset:      be.Uint32(data[12:]),
		Segment:     int16(be.Uint16(e[4:])),
		EntryOffset: be.Uint16(e[0:]),
	}, nil
}

// Entry is a loaded entry segment.
type Entry struct {
	Table   *JumpTable
	Handle  memmgr.Handle
	Base    uint32
	Segment int16
	Offset  uint16
	Length  uint32
}

// Addr is the segment base plus the jump table offset.
func (e *Entry) Addr() uint32 {
	return e.Base + uint32(e.Offset)
}

// PC is the first instruction of the entry point. Jump table offsets are
// relative to the code that follows the segment header.
func (e *Entry) PC() uint32 {
	return e.Addr() + segmentHeader
}

// Bootstrap resolves the first jump table entry of store, copies its segment
// into a new handle and returns where it landed. Nothing is allocated unless
// both CODE 0 and the entry segment are present and well formed.
func Bootstrap(store rsrc.Store, heap Heap, mem Memory) (*Entry, error) {
	jt, err := store.Lookup(CodeType, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: jump table: %w", ErrNoExecutableCode, err)
	}
	table, err := ParseJumpTable(jt)
	if err != nil {
		return nil, err
	}
	code, err := store.Lookup(CodeType, table.Segment)
	if err != nil {
		return nil, fmt.Errorf("%w: segment %d: %w", ErrNoExecutableCode, table.Segment, err)
	}

	h, err := heap.NewHandle(uint32(len(code)))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate segment %d: %w", table.Segment, err)
	}
	base, err := heap.Deref(h)
	if err != nil {
		return nil, err
	}
	if err := mem.WriteBlock(base, code); err != nil {
		return nil, fmt.Errorf("failed to copy segment %d: %w", table.Segment, err)
	}

	return &Entry{
		Table:   table,
		Handle:  h,
		Base:    base,
		Segment: table.Segment,
		Offset:  table.EntryOffset,
		Length:  uint32(len(code)),
	}, nil
}
