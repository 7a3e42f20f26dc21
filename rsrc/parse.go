package rsrc

import (
	"encoding/binary"
	"fmt"
)

// Layout constants of the resource fork format.
const (
	headerSize   = 16
	mapFixedSize = 28
	typeEntry    = 8
	refEntry     = 12
	noName       = 0xFFFF
)

type reader struct {
	b []byte
}

func (r reader) u8(off int) (uint8, error) {
	if off < 0 || off >= len(r.b) {
		return 0, fmt.Errorf("%w: offset %d beyond %d bytes", ErrMalformedFork, off, len(r.b))
	}
	return r.b[off], nil
}

func (r reader) u16(off int) (uint16, error) {
	if off < 0 || off+2 > len(r.b) {
		return 0, fmt.Errorf("%w: offset %d beyond %d bytes", ErrMalformedFork, off, len(r.b))
	}
	return binary.BigEndian.Uint16(r.b[off:]), nil
}

func (r reader) u32(off int) (uint32, error) {
	if off < 0 || off+4 > len(r.b) {
		return 0, fmt.Errorf("%w: offset %d beyond %d bytes", ErrMalformedFork, off, len(r.b))
	}
	return binary.BigEndian.Uint32(r.b[off:]), nil
}

func (r reader) slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(r.b) {
		return nil, fmt.Errorf("%w: %d bytes at offset %d beyond %d bytes", ErrMalformedFork, n, off, len(r.b))
	}
	return r.b[off : off+n], nil
}

// Parse decodes a raw resource fork.
func Parse(data []byte) (*Fork, error) {
	r := reader{b: data}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrMalformedFork, len(data))
	}
	dataOff, _ := r.u32(0)
	mapOff, _ := r.u32(4)
	dataLen, _ := r.u32(8)
	mapLen, _ := r.u32(12)

	if uint64(dataOff)+uint64(dataLen) > uint64(len(data)) ||
		uint64(mapOff)+uint64(mapLen) > uint64(len(data)) ||
		mapLen < mapFixedSize {
		return nil, fmt.Errorf("%w: header points outside the fork", ErrMalformedFork)
	}

	area, _ := r.slice(int(dataOff), int(dataLen))
	m := reader{b: data[mapOff : mapOff+mapLen]}

	f := NewFork()
	f.Attrs, _ = m.u16(22)
	typeListOff, _ := m.u16(24)
	nameListOff, _ := m.u16(26)

	typeList := int(typeListOff)
	last, err := m.u16(typeList)
	if err != nil {
		return nil, err
	}
	// An empty type list is stored as 0xFFFF.
	numTypes := int(int16(last)) + 1

	for i := 0; i < numTypes; i++ {
		at := typeList + 2 + i*typeEntry
		code, err := m.u32(at)
		if err != nil {
			return nil, err
		}
		count, err := m.u16(at + 4)
		if err != nil {
			return nil, err
		}
		refOff, err := m.u16(at + 6)
		if err != nil {
			return nil, err
		}

		for j := 0; j <= int(count); j++ {
			res, err := parseRef(m, reader{b: area}, Type(code), typeList+int(refOff)+j*refEntry, int(nameListOff))
			if err != nil {
				return nil, err
			}
			f.Add(res)
		}
	}
	return f, nil
}

func parseRef(m, area reader, t Type, at, nameList int) (*Resource, error) {
	id, err := m.u16(at)
	if err != nil {
		return nil, err
	}
	nameOff, _ := m.u16(at + 2)
	attrs, _ := m.u8(at + 4)
	off, err := m.u32(at + 4)
	if err != nil {
		return nil, err
	}
	off &= 0x00FFFFFF

	size, err := area.u32(int(off))
	if err != nil {
		return nil, fmt.Errorf("'%s' ID %d: %w", t, int16(id), err)
	}
	body, err := area.slice(int(off)+4, int(size))
	if err != nil {
		return nil, fmt.Errorf("'%s' ID %d: %w", t, int16(id), err)
	}

	res := &Resource{
		Type:  t,
		ID:    int16(id),
		Attrs: attrs,
		Data:  append([]byte(nil), body...),
	}
	if nameOff != noName {
		n, err := m.u8(nameList + int(nameOff))
		if err != nil {
			return nil, err
		}
		name, err := m.slice(nameList+int(nameOff)+1, int(n))
		if err != nil {
			return nil, err
		}
		res.Name = string(name)
	}
	return res, nil
}
