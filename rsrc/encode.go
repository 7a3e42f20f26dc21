package rsrc

import (
	"encoding/binary"
	"fmt"
)

// dataStart is where the data area conventionally begins; the gap after
// the header is reserved for system use.
const dataStart = 256

// Bytes serializes the fork in the standard resource fork layout.
func (f *Fork) Bytes() ([]byte, error) {
	be := binary.BigEndian
	types := f.Types()

	var area []byte
	offsets := make(map[*Resource]uint32)
	for _, t := range types {
		for _, id := range f.IDs(t) {
			r := f.types[t][id]
			if len(area) > 0xFFFFFF {
				return nil, fmt.Errorf("data area exceeds 24-bit offsets at '%s' ID %d", t, id)
			}
			offsets[r] = uint32(len(area))
			area = be.AppendUint32(area, uint32(len(r.Data)))
			area = append(area, r.Data...)
		}
	}

	typeList := []byte{}
	typeList = be.AppendUint16(typeList, uint16(len(types)-1))
	refStart := 2 + len(types)*typeEntry
	var refs, names []byte
	for _, t := range types {
		ids := f.IDs(t)
		typeList = be.AppendUint32(typeList, uint32(t))
		typeList = be.AppendUint16(typeList, uint16(len(ids)-1))
		typeList = be.AppendUint16(typeList, uint16(refStart+len(refs)))
		for _, id := range ids {
			r := f.types[t][id]
			nameOff := uint16(noName)
			if r.Name != "" {
				if len(r.Name) > 255 {
					return nil, fmt.Errorf("name of '%s' ID %d exceeds 255 bytes", t, id)
				}
				nameOff = uint16(len(names))
				names = append(names, byte(len(r.Name)))
				names = append(names, r.Name...)
			}
			refs = be.AppendUint16(refs, uint16(r.ID))
			refs = be.AppendUint16(refs, nameOff)
			refs = be.AppendUint32(refs, uint32(r.Attrs)<<24|offsets[r])
			refs = be.AppendUint32(refs, 0)
		}
	}

	typeListOff := mapFixedSize
	nameListOff := typeListOff + len(typeList) + len(refs)
	mapLen := nameListOff + len(names)
	mapOff := dataStart + len(area)

	header := make([]byte, headerSize)
	be.PutUint32(header[0:], dataStart)
	be.PutUint32(header[4:], uint32(mapOff))
	be.PutUint32(header[8:], uint32(len(area)))
	be.PutUint32(header[12:], uint32(mapLen))

	out := make([]byte, dataStart, mapOff+mapLen)
	copy(out, header)
	out = append(out, area...)
	out = append(out, header...)
	out = append(out, make([]byte, 6)...) // next map handle, file reference number
	out = be.AppendUint16(out, f.Attrs)
	out = be.AppendUint16(out, uint16(typeListOff))
	out = be.AppendUint16(out, uint16(nameListOff))
	out = append(out, typeList...)
	out = append(out, refs...)
	out = append(out, names...)
	return out, nil
}
