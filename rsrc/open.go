package rsrc

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// AppleDouble container constants.
const (
	appleDoubleMagic  = 0x00051607
	appleSingleMagic  = 0x00051600
	entryResourceFork = 2
)

// Open reads the resource fork of path. It tries, in order, the native
// named fork, an AppleDouble "._" sibling, the file itself as an
// AppleSingle/AppleDouble container and finally the file as a raw fork.
func Open(path string) (*Fork, error) {
	if data, err := os.ReadFile(filepath.Join(path, "..namedfork", "rsrc")); err == nil && len(data) > 0 {
		return Parse(data)
	}

	sibling := filepath.Join(filepath.Dir(path), "._"+filepath.Base(path))
	if data, err := os.ReadFile(sibling); err == nil {
		if fork, ok, err := fromAppleDouble(data); ok {
			return fork, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if fork, ok, err := fromAppleDouble(data); ok {
		return fork, err
	}
	return Parse(data)
}

// fromAppleDouble extracts entry 2 of an AppleSingle/AppleDouble file.
// ok is false when data is not such a container.
func fromAppleDouble(data []byte) (*Fork, bool, error) {
	if len(data) < 26 {
		return nil, false, nil
	}
	be := binary.BigEndian
	magic := be.Uint32(data)
	if magic != appleDoubleMagic && magic != appleSingleMagic {
		return nil, false, nil
	}

	count := int(be.Uint16(data[24:]))
	for i := 0; i < count; i++ {
		at := 26 + i*12
		if at+12 > len(data) {
			return nil, true, fmt.Errorf("%w: truncated AppleDouble entry table", ErrMalformedFork)
		}
		id := be.Uint32(data[at:])
		off := be.Uint32(data[at+4:])
		n := be.Uint32(data[at+8:])
		if id != entryResourceFork {
			continue
		}
		if uint64(off)+uint64(n) > uint64(len(data)) {
			return nil, true, fmt.Errorf("%w: AppleDouble resource entry outside file", ErrMalformedFork)
		}
		fork, err := Parse(data[off : off+n])
		return fork, true, err
	}
	return nil, true, fmt.Errorf("%w: AppleDouble file has no resource fork", ErrMalformedFork)
}
