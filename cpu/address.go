package cpu

import "fmt"

type operandKind int

const (
	kindData operandKind = iota
	kindAddr
	kindMemory
	kindImmediate
)

// operand is a resolved effective address. Extension words and register
// side effects are consumed once, when the operand is resolved.
type operand struct {
	kind operandKind
	reg  uint16
	addr uint32
	imm  uint32
	size Size
}

// resolve computes the effective address for mode/reg.
func (c *CPU) resolve(mode, reg uint16, size Size) (operand, error) {
	op := operand{reg: reg, size: size}
	switch mode {
	case ModeData:
		op.kind = kindData
	case ModeAddr:
		op.kind = kindAddr
	case ModeAddrInd:
		op.kind = kindMemory
		op.addr = c.A[reg]
	case ModeAddrPostInc:
		op.kind = kindMemory
		op.addr = c.A[reg]
		c.A[reg] += stepFor(reg, size)
	case ModeAddrPreDec:
		op.kind = kindMemory
		c.A[reg] -= stepFor(reg, size)
		op.addr = c.A[reg]
	case ModeAddrDisp:
		ext, err := c.fetch()
		if err != nil {
			return op, err
		}
		op.kind = kindMemory
		op.addr = uint32(int32(c.A[reg]) + signExtend16(ext))
	case ModeAddrIndex:
		addr, err := c.indexed(c.A[reg])
		if err != nil {
			return op, err
		}
		op.kind = kindMemory
		op.addr = addr
	case ModeOther:
		return c.resolveOther(op)
	default:
		return op, fmt.Errorf("unimplemented addressing mode %d", mode)
	}
	return op, nil
}

func (c *CPU) resolveOther(op operand) (operand, error) {
	op.kind = kindMemory
	switch op.reg {
	case RegAbsShort:
		ext, err := c.fetch()
		if err != nil {
			return op, err
		}
		op.addr = uint32(signExtend16(ext))
	case RegAbsLong:
		addr, err := c.fetchLong()
		if err != nil {
			return op, err
		}
		op.addr = addr
	case RegPCDisp:
		base := c.PC
		ext, err := c.fetch()
		if err != nil {
			return op, err
		}
		op.addr = uint32(int32(base) + signExtend16(ext))
	case RegPCIndex:
		addr, err := c.indexed(c.PC)
		if err != nil {
			return op, err
		}
		op.addr = addr
	case RegImmediate:
		op.kind = kindImmediate
		switch op.size {
		case SizeByte:
			// A byte immediate occupies a full extension word; only the low byte counts.
			ext, err := c.fetch()
			if err != nil {
				return op, err
			}
			op.imm = uint32(ext & 0xFF)
		case SizeWord:
			ext, err := c.fetch()
			if err != nil {
				return op, err
			}
			op.imm = uint32(ext)
		case SizeLong:
			v, err := c.fetchLong()
			if err != nil {
				return op, err
			}
			op.imm = v
		default:
			return op, fmt.Errorf("invalid size for immediate operand")
		}
	default:
		return op, fmt.Errorf("unimplemented addressing sub-mode %d for mode %d", op.reg, ModeOther)
	}
	return op, nil
}

// indexed decodes a brief extension word: (d8,base,Xn).
func (c *CPU) indexed(base uint32) (uint32, error) {
	ext, err := c.fetch()
	if err != nil {
		return 0, err
	}
	n := (ext >> 12) & 7
	idx := c.D[n]
	if ext&0x8000 != 0 {
		idx = c.A[n]
	}
	if ext&0x0800 == 0 {
		idx = uint32(signExtend16(uint16(idx)))
	}
	disp := int32(int8(ext & 0xFF))
	return uint32(int32(base) + disp + int32(idx)), nil
}

// stepFor is the post-increment/pre-decrement amount. Byte accesses through
// A7 move by 2 to keep the stack word-aligned.
func stepFor(reg uint16, size Size) uint32 {
	if size == SizeByte && reg == 7 {
		return 2
	}
	return uint32(size.Bytes())
}

func (c *CPU) load(op operand) (uint32, error) {
	switch op.kind {
	case kindData:
		return c.D[op.reg] & op.size.mask(), nil
	case kindAddr:
		return c.A[op.reg] & op.size.mask(), nil
	case kindImmediate:
		return op.imm, nil
	}
	return c.Read(op.addr, op.size)
}

func (c *CPU) store(op operand, value uint32) error {
	switch op.kind {
	case kindData:
		m := op.size.mask()
		c.D[op.reg] = (c.D[op.reg] &^ m) | (value & m)
		return nil
	case kindAddr:
		switch op.size {
		case SizeWord:
			c.A[op.reg] = uint32(signExtend16(uint16(value)))
		case SizeLong:
			c.A[op.reg] = value
		default:
			return fmt.Errorf("invalid size .%v for put operand to A%d", op.size, op.reg)
		}
		return nil
	case kindImmediate:
		return fmt.Errorf("immediate operand is not writable")
	}
	return c.Write(op.addr, op.size, value)
}

// GetOperand reads the operand named by mode and reg.
func (c *CPU) GetOperand(mode, reg uint16, size Size) (uint32, error) {
	op, err := c.resolve(mode, reg, size)
	if err != nil {
		return 0, err
	}
	return c.load(op)
}

// PutOperand stores value into the operand named by mode and reg.
func (c *CPU) PutOperand(mode, reg uint16, size Size, value uint32) error {
	op, err := c.resolve(mode, reg, size)
	if err != nil {
		return err
	}
	return c.store(op, value)
}

// signExtend16 widens a word to a signed long.
func signExtend16(v uint16) int32 {
	return int32(int16(v))
}
