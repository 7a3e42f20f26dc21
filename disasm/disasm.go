// Package disasm renders guest code one instruction at a time.
//
// It understands the instructions the cpu package executes. Line-A words
// are shown by trap name when a TrapNamer knows them; anything else is
// emitted as a dc.w constant.
package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Urethramancer/m68kmac/cpu"
)

// MaxLen is the longest instruction the decoder reads, in bytes.
const MaxLen = 10

// TrapNamer resolves Line-A words to names.
type TrapNamer interface {
	DisplayName(op uint16) (string, error)
}

// Line is one decoded instruction.
type Line struct {
	Addr     uint32
	Words    []uint16
	Mnemonic string
	Operands string
}

// Len returns the encoded length in bytes.
func (l Line) Len() uint32 {
	return uint32(len(l.Words) * 2)
}

func (l Line) String() string {
	hex := make([]string, len(l.Words))
	for i, w := range l.Words {
		hex[i] = fmt.Sprintf("%04X", w)
	}
	s := fmt.Sprintf("%08X  %-24s %s", l.Addr, strings.Join(hex, " "), l.Mnemonic)
	if l.Operands != "" {
		s += "\t" + l.Operands
	}
	return s
}

// Decode decodes the instruction at the start of code, which was read from
// addr. names may be nil.
func Decode(addr uint32, code []byte, names TrapNamer) Line {
	if len(code) < 2 {
		return Line{Addr: addr, Mnemonic: "dc.b", Operands: hexBytes(code)}
	}
	op := binary.BigEndian.Uint16(code)
	d := decoder{addr: addr, code: code, pc: 2, names: names}
	mn, ops := d.decode(op)
	if mn == "" {
		d.pc = 2
		mn, ops = "dc.w", fmt.Sprintf("$%04X", op)
	}
	return Line{Addr: addr, Words: cpu.BytesToWords(code[:d.pc]), Mnemonic: mn, Operands: ops}
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("$%02X", v)
	}
	return strings.Join(parts, ",")
}

// decoder tracks extension words consumed after the opcode.
type decoder struct {
	addr  uint32
	code  []byte
	pc    int
	names TrapNamer
	bad   bool
}

func (d *decoder) word() uint16 {
	if d.pc+2 > len(d.code) {
		d.bad = true
		return 0
	}
	w := binary.BigEndian.Uint16(d.code[d.pc:])
	d.pc += 2
	return w
}

func (d *decoder) long() uint32 {
	hi := uint32(d.word())
	return hi<<16 | uint32(d.word())
}

// decode returns the mnemonic and operands, or "" for an unknown word.
func (d *decoder) decode(op uint16) (string, string) {
	mn, ops := d.instruction(op)
	if d.bad {
		return "", ""
	}
	return mn, ops
}

func (d *decoder) instruction(op uint16) (string, string) {
	switch op {
	case 0x4E71:
		return "nop", ""
	case 0x4E75:
		return "rts", ""
	case 0x4AFC:
		return "illegal", ""
	case 0x4E72:
		return "stop", fmt.Sprintf("#$%04X", d.word())
	}

	switch {
	case op&0xFFF0 == 0x4E40:
		return "trap", fmt.Sprintf("#%d", op&0xF)
	case op&0xFFC0 == 0x4E80:
		return "jsr", d.ea(op, sizeLong)
	case op&0xFFC0 == 0x4EC0:
		return "jmp", d.ea(op, sizeLong)
	case op&0xF1C0 == 0x41C0:
		return "lea", fmt.Sprintf("%s,a%d", d.ea(op, sizeLong), (op>>9)&7)
	case op&0xFF00 == 0x4200:
		size := sizeFromBits((op >> 6) & 3)
		if size == sizeNone {
			return "", ""
		}
		return "clr" + size.suffix(), d.ea(op, size)
	}

	switch op >> 12 {
	case 0x1, 0x2, 0x3:
		return d.move(op)
	case 0x5:
		return d.quick(op)
	case 0x6:
		return d.branch(op)
	case 0x7:
		if op&0x0100 != 0 {
			return "", ""
		}
		return "moveq", fmt.Sprintf("#%d,d%d", int8(op), (op>>9)&7)
	case 0xA:
		if d.names != nil {
			if name, err := d.names.DisplayName(op); err == nil {
				return name, ""
			}
		}
		return "dc.w", fmt.Sprintf("$%04X", op)
	case 0xD:
		return d.add(op)
	}
	return "", ""
}

func (d *decoder) move(op uint16) (string, string) {
	var size opSize
	switch op >> 12 {
	case 1:
		size = sizeByte
	case 2:
		size = sizeLong
	case 3:
		size = sizeWord
	}
	src := d.ea(op, size)
	dstMode := (op >> 6) & 7
	dstReg := (op >> 9) & 7
	if dstMode == 1 {
		if size == sizeByte {
			return "", ""
		}
		return "movea" + size.suffix(), fmt.Sprintf("%s,a%d", src, dstReg)
	}
	dst := d.ea(dstMode<<3|dstReg, size)
	return "move" + size.suffix(), src + "," + dst
}

func (d *decoder) quick(op uint16) (string, string) {
	size := sizeFromBits((op >> 6) & 3)
	if size == sizeNone {
		return "", ""
	}
	data := (op >> 9) & 7
	if data == 0 {
		data = 8
	}
	mn := "addq"
	if op&0x0100 != 0 {
		mn = "subq"
	}
	return mn + size.suffix(), fmt.Sprintf("#%d,%s", data, d.ea(op, size))
}

func (d *decoder) add(op uint16) (string, string) {
	reg := (op >> 9) & 7
	opmode := (op >> 6) & 7
	switch opmode {
	case 3, 7:
		size := sizeWord
		if opmode == 7 {
			size = sizeLong
		}
		return "adda" + size.suffix(), fmt.Sprintf("%s,a%d", d.ea(op, size), reg)
	}
	size := sizeFromBits(opmode & 3)
	if opmode&4 != 0 {
		return "add" + size.suffix(), fmt.Sprintf("d%d,%s", reg, d.ea(op, size))
	}
	return "add" + size.suffix(), fmt.Sprintf("%s,d%d", d.ea(op, size), reg)
}

var conditions = [16]string{"ra", "sr", "hi", "ls", "cc", "cs", "ne", "eq",
	"vc", "vs", "pl", "mi", "ge", "lt", "gt", "le"}

// branch shows the absolute target rather than the displacement.
func (d *decoder) branch(op uint16) (string, string) {
	base := d.addr + 2
	disp := int32(int8(op))
	mn := "b" + conditions[(op>>8)&0xF]
	switch uint8(op) {
	case 0x00:
		disp = int32(int16(d.word()))
		mn += ".w"
	case 0xFF:
		disp = int32(d.long())
		mn += ".l"
	default:
		mn += ".s"
	}
	return mn, fmt.Sprintf("$%X", base+uint32(disp))
}
