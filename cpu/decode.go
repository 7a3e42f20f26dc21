package cpu

import "fmt"

// DecodedInstruction is an opcode broken into the fields its handler needs.
type DecodedInstruction struct {
	Handler func(*CPU, *DecodedInstruction) error
	Opcode  uint16
	Size    Size
	SrcMode uint16
	SrcReg  uint16
	DstMode uint16
	DstReg  uint16
	OpMode  uint16
}

// field extracts width bits of op starting at bit shift.
func field(op uint16, shift, width uint) uint16 {
	return (op >> shift) & (1<<width - 1)
}

// moveSizes maps the MOVE size nibble (bits 12-13) to an operand size.
var moveSizes = [4]Size{1: SizeByte, 2: SizeLong, 3: SizeWord}

// Decode splits opcode into fields and picks the handler for it.
// Opcodes outside the supported subset return an error.
func (c *CPU) Decode(opcode uint16) (*DecodedInstruction, error) {
	inst := &DecodedInstruction{Opcode: opcode}
	var ok bool
	switch opcode >> 12 {
	case 1, 2, 3:
		ok = decodeMove(inst)
	case 4:
		ok = c.decodeMisc(inst)
	case 5:
		ok = decodeQuick(inst)
	case 6:
		inst.Handler = (*CPU).opBcc
		inst.OpMode = field(opcode, 8, 4)
		inst.SrcReg = opcode & 0xFF
		ok = true
	case 7:
		ok = decodeMoveq(inst)
	case 0xA:
		inst.Handler, ok = (*CPU).opLineA, true
	case 0xD:
		ok = decodeAdd(inst)
	case 0xF:
		inst.Handler, ok = (*CPU).opLineF, true
	}
	if !ok {
		return nil, fmt.Errorf("unknown or unimplemented instruction: %04X", opcode)
	}
	return inst, nil
}

// decodeMove handles lines 1-3. An address register destination makes it MOVEA.
func decodeMove(inst *DecodedInstruction) bool {
	op := inst.Opcode
	inst.Size = moveSizes[field(op, 12, 2)]
	inst.SrcReg, inst.SrcMode = field(op, 0, 3), field(op, 3, 3)
	inst.DstMode, inst.DstReg = field(op, 6, 3), field(op, 9, 3)
	inst.Handler = (*CPU).opMOVE
	if inst.DstMode == ModeAddr {
		inst.Handler = (*CPU).opMOVEA
	}
	return true
}

// decodeQuick handles ADDQ and SUBQ. Size 11 is Scc/DBcc, which is not
// supported. The 3-bit data field encodes 1-8 and travels in SrcReg.
func decodeQuick(inst *DecodedInstruction) bool {
	op := inst.Opcode
	if field(op, 6, 2) == 3 {
		return false
	}
	n := field(op, 9, 3)
	if n == 0 {
		n = 8
	}
	inst.SrcReg = n
	inst.Size = sizeFromBits(field(op, 6, 2))
	inst.DstMode, inst.DstReg = field(op, 3, 3), field(op, 0, 3)
	inst.Handler = (*CPU).opADDQ
	if field(op, 8, 1) == 1 {
		inst.Handler = (*CPU).opSUBQ
	}
	return true
}

// decodeMoveq handles MOVEQ; the signed byte travels in SrcReg.
func decodeMoveq(inst *DecodedInstruction) bool {
	op := inst.Opcode
	if field(op, 8, 1) != 0 {
		return false
	}
	inst.Handler = (*CPU).opMOVEQ
	inst.Size = SizeLong
	inst.DstReg = field(op, 9, 3)
	inst.SrcReg = op & 0xFF
	return true
}

// decodeAdd handles line D. Opmodes 3 and 7 select ADDA.
func decodeAdd(inst *DecodedInstruction) bool {
	op := inst.Opcode
	inst.Handler = (*CPU).opADD
	inst.OpMode = field(op, 6, 3)
	inst.DstReg = field(op, 9, 3)
	inst.SrcMode, inst.SrcReg = field(op, 3, 3), field(op, 0, 3)
	inst.Size = sizeFromBits(inst.OpMode)
	return true
}

// decodeMisc fills in the 0100 group.
func (c *CPU) decodeMisc(inst *DecodedInstruction) bool {
	op := inst.Opcode
	inst.SrcMode, inst.SrcReg = field(op, 3, 3), field(op, 0, 3)

	switch {
	case op == OPNOP:
		inst.Handler = (*CPU).opNOP
	case op == OPRTS:
		inst.Handler = (*CPU).opRTS
	case op == OPSTOP:
		inst.Handler = (*CPU).opSTOP
	case op == OPILLEGAL:
		inst.Handler = (*CPU).opILLEGAL
	case op&0xFFF0 == OPTRAP:
		inst.Handler = (*CPU).opTRAP
		inst.DstReg = field(op, 0, 4)
	case op&0xFFC0 == OPJSR:
		inst.Handler = (*CPU).opJSR
	case op&0xFFC0 == OPJMP:
		inst.Handler = (*CPU).opJMP
	case op&0xF1C0 == OPLEA:
		inst.Handler = (*CPU).opLEA
		inst.DstReg = field(op, 9, 3)
	case op&0xFF00 == OPCLR && field(op, 6, 2) != 3:
		inst.Handler = (*CPU).opCLR
		inst.Size = sizeFromBits(field(op, 6, 2))
		inst.DstMode, inst.DstReg = inst.SrcMode, inst.SrcReg
	default:
		return false
	}
	return true
}
