package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBus is returned for accesses outside mapped memory and for writes to ROM.
var ErrBus = errors.New("bus error")

// BusError describes a failed memory access.
type BusError struct {
	Addr  uint32
	Len   uint32
	Write bool
}

func (e *BusError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return fmt.Sprintf("bus error: %s of %d bytes at %08X", op, e.Len, e.Addr)
}

func (e *BusError) Unwrap() error {
	return ErrBus
}

// span returns the backing bytes for [addr, addr+n).
func (c *CPU) span(addr, n uint32, write bool) ([]byte, error) {
	end := uint64(addr) + uint64(n)
	if end <= uint64(len(c.Mem)) {
		return c.Mem[addr:end], nil
	}
	if !write && len(c.ROM) > 0 && addr >= c.ROMBase {
		off := uint64(addr - c.ROMBase)
		if off+uint64(n) <= uint64(len(c.ROM)) {
			return c.ROM[off : off+uint64(n)], nil
		}
	}
	return nil, &BusError{Addr: addr, Len: n, Write: write}
}

// Read reads a big-endian value of the given size.
func (c *CPU) Read(addr uint32, size Size) (uint32, error) {
	b, err := c.span(addr, uint32(size.Bytes()), false)
	if err != nil {
		return 0, err
	}
	switch size {
	case SizeByte:
		return uint32(b[0]), nil
	case SizeWord:
		return uint32(binary.BigEndian.Uint16(b)), nil
	case SizeLong:
		return binary.BigEndian.Uint32(b), nil
	}
	return 0, fmt.Errorf("invalid size %v for read", size)
}

// Write stores a big-endian value of the given size.
func (c *CPU) Write(addr uint32, size Size, val uint32) error {
	b, err := c.span(addr, uint32(size.Bytes()), true)
	if err != nil {
		return err
	}
	switch size {
	case SizeByte:
		b[0] = byte(val)
	case SizeWord:
		binary.BigEndian.PutUint16(b, uint16(val))
	case SizeLong:
		binary.BigEndian.PutUint32(b, val)
	default:
		return fmt.Errorf("invalid size %v for write", size)
	}
	return nil
}

// ReadBlock copies n bytes starting at addr.
func (c *CPU) ReadBlock(addr, n uint32) ([]byte, error) {
	b, err := c.span(addr, n, false)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// WriteBlock copies data into memory starting at addr.
func (c *CPU) WriteBlock(addr uint32, data []byte) error {
	b, err := c.span(addr, uint32(len(data)), true)
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// fetch reads the next extension word and advances the PC.
func (c *CPU) fetch() (uint16, error) {
	v, err := c.Read(c.PC, SizeWord)
	if err != nil {
		return 0, err
	}
	c.PC += 2
	return uint16(v), nil
}

func (c *CPU) fetchLong() (uint32, error) {
	v, err := c.Read(c.PC, SizeLong)
	if err != nil {
		return 0, err
	}
	c.PC += 4
	return v, nil
}

func (c *CPU) push(size Size, v uint32) error {
	c.A[7] -= uint32(size.Bytes())
	return c.Write(c.A[7], size, v)
}

func (c *CPU) pop(size Size) (uint32, error) {
	v, err := c.Read(c.A[7], size)
	if err != nil {
		return 0, err
	}
	c.A[7] += uint32(size.Bytes())
	return v, nil
}
