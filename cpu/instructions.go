package cpu

// Size is an operand width.
type Size int

// Operand widths. The zero value marks an unencodable size field.
const (
	SizeInvalid Size = iota
	SizeByte
	SizeWord
	SizeLong
)

// Bytes returns the width in bytes, or 0 for SizeInvalid.
func (s Size) Bytes() int {
	if s < SizeByte || s > SizeLong {
		return 0
	}
	return 1 << (s - SizeByte)
}

func (s Size) String() string {
	if s < SizeByte || s > SizeLong {
		return "?"
	}
	return "BWL"[s-SizeByte : s]
}

// mask returns the value bits covered by the size.
func (s Size) mask() uint32 {
	switch s {
	case SizeByte:
		return 0xFF
	case SizeWord:
		return 0xFFFF
	}
	return 0xFFFFFFFF
}

// msb returns the sign bit for the size.
func (s Size) msb() uint32 {
	switch s {
	case SizeByte:
		return 0x80
	case SizeWord:
		return 0x8000
	}
	return 0x80000000
}

// sizeFromBits decodes the usual 2-bit size field; 11 is invalid.
func sizeFromBits(bits uint16) Size {
	if bits&3 == 3 {
		return SizeInvalid
	}
	return SizeByte + Size(bits&3)
}

// Opcodes with a fixed encoding.
const (
	OPNOP     = 0x4E71 // NOP
	OPSTOP    = 0x4E72 // STOP
	OPRTS     = 0x4E75 // RTS
	OPILLEGAL = 0x4AFC // ILLEGAL
	OPTRAP    = 0x4E40 // TRAP (vector in low 4 bits)
	OPLEA     = 0x41C0 // LEA (register in bits 9-11)
	OPJSR     = 0x4E80 // JSR (ea in low 6 bits)
	OPJMP     = 0x4EC0 // JMP (ea in low 6 bits)
	OPCLR     = 0x4200 // CLR (size bits 6-7)
)
