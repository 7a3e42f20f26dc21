package disasm

import "fmt"

type opSize int

const (
	sizeNone opSize = iota
	sizeByte
	sizeWord
	sizeLong
)

func sizeFromBits(bits uint16) opSize {
	switch bits {
	case 0:
		return sizeByte
	case 1:
		return sizeWord
	case 2:
		return sizeLong
	}
	return sizeNone
}

func (s opSize) suffix() string {
	switch s {
	case sizeByte:
		return ".b"
	case sizeWord:
		return ".w"
	case sizeLong:
		return ".l"
	}
	return ""
}

// ea formats the effective address in the low six bits of field and
// consumes its extension words.
func (d *decoder) ea(field uint16, size opSize) string {
	mode := (field >> 3) & 7
	reg := field & 7

	switch mode {
	case 0:
		return fmt.Sprintf("d%d", reg)
	case 1:
		return fmt.Sprintf("a%d", reg)
	case 2:
		return fmt.Sprintf("(a%d)", reg)
	case 3:
		return fmt.Sprintf("(a%d)+", reg)
	case 4:
		return fmt.Sprintf("-(a%d)", reg)
	case 5:
		return fmt.Sprintf("(%s,a%d)", disp16(int16(d.word())), reg)
	case 6:
		return d.index(fmt.Sprintf("a%d", reg))
	}

	switch reg {
	case 0:
		return fmt.Sprintf("$%X.w", d.word())
	case 1:
		return fmt.Sprintf("$%X.l", d.long())
	case 2:
		at := d.addr + uint32(d.pc)
		v := int16(d.word())
		return fmt.Sprintf("$%X(pc)", at+uint32(int32(v)))
	case 3:
		return d.index("pc")
	case 4:
		return d.immediate(size)
	}
	d.bad = true
	return ""
}

func (d *decoder) index(base string) string {
	ext := d.word()
	kind := "d"
	if ext&0x8000 != 0 {
		kind = "a"
	}
	width := "w"
	if ext&0x0800 != 0 {
		width = "l"
	}
	return fmt.Sprintf("(%s,%s,%s%d.%s)", disp8(int8(ext)), base, kind, (ext>>12)&7, width)
}

func (d *decoder) immediate(size opSize) string {
	switch size {
	case sizeByte:
		return fmt.Sprintf("#$%X", uint8(d.word()))
	case sizeWord:
		return fmt.Sprintf("#$%X", d.word())
	case sizeLong:
		return fmt.Sprintf("#$%X", d.long())
	}
	d.bad = true
	return ""
}

func disp8(v int8) string {
	if v >= -9 && v <= 9 {
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("$%X", uint8(v))
}

func disp16(v int16) string {
	if v >= -9 && v <= 9 {
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("$%X", uint16(v))
}
