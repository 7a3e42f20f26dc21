// Package memmgr implements a handle-based heap zone in guest memory.
//
// A Handle is the guest address of a master pointer: a long word holding the
// address of the block's data. Guest code dereferences it with
// MOVEA.L (A0),A0 exactly as it would on the real machine.
package memmgr

import (
	"errors"
	"fmt"

	"github.com/Urethramancer/m68kmac/cpu"
)

// Toolbox result codes written to D0 by the memory traps.
const (
	NoErr        = 0
	MemFullErr   = -108
	NilHandleErr = -109
)

var (
	// ErrMemFull is returned when the zone cannot satisfy an allocation.
	ErrMemFull = errors.New("memory full")
	// ErrNilHandle is returned for handles the zone did not allocate.
	ErrNilHandle = errors.New("nil or unknown handle")
)

// Handle is the guest address of a master pointer.
type Handle uint32

// Memory is the guest address space the zone lives in.
type Memory interface {
	Read(addr uint32, size cpu.Size) (uint32, error)
	Write(addr uint32, size cpu.Size, val uint32) error
}

type block struct {
	handle Handle // 0 for non-relocatable blocks
	ptr    uint32
	size   uint32
}

// Zone is a bump allocator over [start, end). Blocks are never moved or
// released, so a handle's master pointer stays valid for the zone's lifetime.
type Zone struct {
	mem        Memory
	start, end uint32
	next       uint32
	handles    map[Handle]*block
	ptrs       map[uint32]*block
}

// New creates a zone covering [start, end) of mem.
func New(mem Memory, start, end uint32) (*Zone, error) {
	start = align(start)
	if end <= start {
		return nil, fmt.Errorf("invalid zone bounds %08X-%08X", start, end)
	}
	return &Zone{
		mem:     mem,
		start:   start,
		end:     end,
		next:    start,
		handles: make(map[Handle]*block),
		ptrs:    make(map[uint32]*block),
	}, nil
}

func align(v uint32) uint32 {
	return (v + 3) &^ 3
}

// reserve carves n bytes (at least 4) from the zone.
func (z *Zone) reserve(n uint32) (uint32, error) {
	if n < 4 {
		n = 4
	}
	free := uint64(z.end - z.next)
	padded := (uint64(n) + 3) &^ 3
	if padded > free {
		return 0, fmt.Errorf("%w: need %d bytes, %d free", ErrMemFull, padded, free)
	}
	addr := z.next
	z.next += uint32(padded)
	return addr, nil
}

// NewHandle allocates a relocatable block of size bytes. The block's
// contents are whatever the zone held before.
func (z *Zone) NewHandle(size uint32) (Handle, error) {
	mark := z.next
	slot, err := z.reserve(4)
	if err != nil {
		return 0, err
	}
	ptr, err := z.reserve(size)
	if err != nil {
		z.next = mark
		return 0, err
	}
	if err := z.mem.Write(slot, cpu.SizeLong, ptr); err != nil {
		z.next = mark
		return 0, fmt.Errorf("failed to write master pointer: %w", err)
	}

	b := &block{handle: Handle(slot), ptr: ptr, size: size}
	z.handles[b.handle] = b
	z.ptrs[ptr] = b
	return b.handle, nil
}

// NewHandleClear allocates a relocatable block and zero-fills it.
func (z *Zone) NewHandleClear(size uint32) (Handle, error) {
	h, err := z.NewHandle(size)
	if err != nil {
		return 0, err
	}
	if err := z.fill(z.handles[h].ptr, size, 0); err != nil {
		return 0, err
	}
	return h, nil
}

// NewPtr allocates a non-relocatable block and returns its address.
func (z *Zone) NewPtr(size uint32) (uint32, error) {
	ptr, err := z.reserve(size)
	if err != nil {
		return 0, err
	}
	z.ptrs[ptr] = &block{ptr: ptr, size: size}
	return ptr, nil
}

// NewPtrClear allocates a non-relocatable block and zero-fills it.
func (z *Zone) NewPtrClear(size uint32) (uint32, error) {
	ptr, err := z.NewPtr(size)
	if err != nil {
		return 0, err
	}
	return ptr, z.fill(ptr, size, 0)
}

// HandleSize returns the logical size requested for h.
func (z *Zone) HandleSize(h Handle) (uint32, error) {
	b, ok := z.handles[h]
	if !ok {
		return 0, fmt.Errorf("%w: %08X", ErrNilHandle, uint32(h))
	}
	return b.size, nil
}

// PtrSize returns the logical size of the block starting at ptr.
func (z *Zone) PtrSize(ptr uint32) (uint32, error) {
	b, ok := z.ptrs[ptr]
	if !ok {
		return 0, fmt.Errorf("%w: pointer %08X", ErrNilHandle, ptr)
	}
	return b.size, nil
}

// RecoverHandle returns the handle whose block starts at ptr, or 0 when
// ptr is not the start of a relocatable block.
func (z *Zone) RecoverHandle(ptr uint32) Handle {
	b, ok := z.ptrs[ptr]
	if !ok {
		return 0
	}
	return b.handle
}

// Deref reads the master pointer of h from guest memory.
func (z *Zone) Deref(h Handle) (uint32, error) {
	if _, ok := z.handles[h]; !ok {
		return 0, fmt.Errorf("%w: %08X", ErrNilHandle, uint32(h))
	}
	return z.mem.Read(uint32(h), cpu.SizeLong)
}

// Free returns the number of unallocated bytes left in the zone.
func (z *Zone) Free() uint32 {
	return z.end - z.next
}

// Bounds returns the zone's address range.
func (z *Zone) Bounds() (start, end uint32) {
	return z.start, z.end
}

func (z *Zone) fill(addr, n uint32, val byte) error {
	for i := uint32(0); i < n; i++ {
		if err := z.mem.Write(addr+i, cpu.SizeByte, uint32(val)); err != nil {
			return fmt.Errorf("failed to clear block at %08X: %w", addr, err)
		}
	}
	return nil
}
