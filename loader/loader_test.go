package loader_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Urethramancer/m68kmac/cpu"
	"github.com/Urethramancer/m68kmac/loader"
	"github.com/Urethramancer/m68kmac/memmgr"
	"github.com/Urethramancer/m68kmac/rsrc"
)

// countingHeap records allocations made through it.
type countingHeap struct {
	*memmgr.Zone
	allocs int
}

func (h *countingHeap) NewHandle(size uint32) (memmgr.Handle, error) {
	h.allocs++
	return h.Zone.NewHandle(size)
}

func newHeap(t *testing.T) (*cpu.CPU, *countingHeap) {
	t.Helper()
	c := cpu.New(0x50000)
	z, err := memmgr.New(c, 0x20000, 0x50000)
	if err != nil {
		t.Fatal(err)
	}
	return c, &countingHeap{Zone: z}
}

func jumpTable(offset, marker uint16, segment int16, trap uint16) []byte {
	b := make([]byte, 32)
	be := binary.BigEndian
	be.PutUint32(b[0:], 0x100)
	be.PutUint32(b[4:], 0x200)
	be.PutUint32(b[8:], 16)
	be.PutUint32(b[12:], 32)
	be.PutUint16(b[16:], offset)
	be.PutUint16(b[18:], marker)
	be.PutUint16(b[20:], uint16(segment))
	be.PutUint16(b[22:], trap)
	return b
}

func application(jt []byte, segments map[int16][]byte) *rsrc.Fork {
	f := rsrc.NewFork()
	if jt != nil {
		f.Add(&rsrc.Resource{Type: loader.CodeType, ID: 0, Data: jt})
	}
	for id, data := range segments {
		f.Add(&rsrc.Resource{Type: loader.CodeType, ID: id, Data: data})
	}
	return f
}

func TestBootstrap(t *testing.T) {
	c, heap := newHeap(t)
	seg := append([]byte{0x00, 0x00, 0x00, 0x01}, cpu.WordsToBytes(0x4E71, 0x4E71, 0x7001, 0x4E4F)...)
	f := application(jumpTable(4, 0x3F3C, 1, 0xA9F0), map[int16][]byte{1: seg})

	e, err := loader.Bootstrap(f, heap, c)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if e.Segment != 1 || e.Offset != 4 || e.Length != uint32(len(seg)) {
		t.Errorf("entry = %+v", e)
	}
	if e.Addr() != e.Base+4 {
		t.Errorf("Addr = %08X, want base %08X + 4", e.Addr(), e.Base)
	}
	if e.PC() != e.Base+8 {
		t.Errorf("PC = %08X, want base %08X + 8", e.PC(), e.Base)
	}
	if ptr, _ := heap.Deref(e.Handle); ptr != e.Base {
		t.Errorf("handle points at %08X, base is %08X", ptr, e.Base)
	}
	got, _ := c.ReadBlock(e.Base, uint32(len(seg)))
	if !bytes.Equal(got, seg) {
		t.Errorf("segment bytes = % X", got)
	}
	if e.Table.AboveA5 != 0x100 || e.Table.BelowA5 != 0x200 || e.Table.Size != 16 || e.Table.Offset != 32 {
		t.Errorf("table header = %+v", e.Table)
	}

	// The loaded code runs from PC.
	c.Reset(e.PC(), 0x1FF00)
	if _, err := c.Run(t.Context(), 10); err != nil {
		t.Fatal(err)
	}
	if c.D[0] != 1 {
		t.Errorf("D0 = %d after running the segment", c.D[0])
	}
}

func TestBootstrapFailures(t *testing.T) {
	seg := make([]byte, 16)
	tests := []struct {
		name string
		fork *rsrc.Fork
		want error
	}{
		{"NoJumpTable", application(nil, map[int16][]byte{1: seg}), loader.ErrNoExecutableCode},
		{"NoSegment", application(jumpTable(0, 0x3F3C, 2, 0xA9F0), map[int16][]byte{1: seg}), loader.ErrNoExecutableCode},
		{"BadMarker", application(jumpTable(0, 0x4E71, 1, 0xA9F0), map[int16][]byte{1: seg}), loader.ErrMalformedJumpTable},
		{"BadTrap", application(jumpTable(0, 0x3F3C, 1, 0xA9F1), map[int16][]byte{1: seg}), loader.ErrMalformedJumpTable},
		{"Short", application(make([]byte, 20), map[int16][]byte{1: seg}), loader.ErrMalformedJumpTable},
	}
	for _, tc := range tests {
		c, heap := newHeap(t)
		_, err := loader.Bootstrap(tc.fork, heap, c)
		if !errors.Is(err, tc.want) {
			t.Errorf("[%s] error = %v, want %v", tc.name, err, tc.want)
		}
		if heap.allocs != 0 {
			t.Errorf("[%s] allocated %d handles", tc.name, heap.allocs)
		}
	}
}

func TestBootstrapNoRoom(t *testing.T) {
	c := cpu.New(0x50000)
	z, _ := memmgr.New(c, 0x20000, 0x20010)
	f := application(jumpTable(0, 0x3F3C, 1, 0xA9F0), map[int16][]byte{1: make([]byte, 64)})
	if _, err := loader.Bootstrap(f, z, c); !errors.Is(err, memmgr.ErrMemFull) {
		t.Errorf("error = %v, want ErrMemFull", err)
	}
}
