package cpu

// setNZ updates the N and Z flags in the SR based on a value and operation size.
func (c *CPU) setNZ(value uint32, size Size) {
	c.SR &^= (SRN | SRZ)
	if value&size.mask() == 0 {
		c.SR |= SRZ
	}
	if value&size.msb() != 0 {
		c.SR |= SRN
	}
}

// setFlagsAdd sets X, N, Z, V and C after result = dst + src.
func (c *CPU) setFlagsAdd(src, dst, result uint32, size Size) {
	c.SR &^= (SRX | SRN | SRZ | SRV | SRC)
	msb := size.msb()
	s, d, r := src&msb, dst&msb, result&msb

	if result&size.mask() == 0 {
		c.SR |= SRZ
	}
	if r != 0 {
		c.SR |= SRN
	}
	// Carry out of the most significant bit.
	if ((s&d)|(^r&s)|(^r&d))&msb != 0 {
		c.SR |= SRC | SRX
	}
	// Operands share a sign the result does not.
	if s == d && s != r {
		c.SR |= SRV
	}
}

// setFlagsSub sets X, N, Z, V and C after result = dst - src.
func (c *CPU) setFlagsSub(src, dst, result uint32, size Size) {
	c.SR &^= (SRX | SRN | SRZ | SRV | SRC)
	msb := size.msb()
	s, d, r := src&msb, dst&msb, result&msb

	if result&size.mask() == 0 {
		c.SR |= SRZ
	}
	if r != 0 {
		c.SR |= SRN
	}
	// Borrow into the most significant bit.
	if ((s&^d)|(r&^d)|(s&r))&msb != 0 {
		c.SR |= SRC | SRX
	}
	if s != d && r != d {
		c.SR |= SRV
	}
}

// testCondition evaluates one of the 16 condition codes against SR.
func (c *CPU) testCondition(cond uint16) bool {
	flag := func(f uint16) bool { return c.SR&f != 0 }
	n, z, v, cy := flag(SRN), flag(SRZ), flag(SRV), flag(SRC)
	switch cond & 0xF {
	case 0x0: // T
		return true
	case 0x1: // F
		return false
	case 0x2: // HI
		return !cy && !z
	case 0x3: // LS
		return cy || z
	case 0x4: // CC
		return !cy
	case 0x5: // CS
		return cy
	case 0x6: // NE
		return !z
	case 0x7: // EQ
		return z
	case 0x8: // VC
		return !v
	case 0x9: // VS
		return v
	case 0xA: // PL
		return !n
	case 0xB: // MI
		return n
	case 0xC: // GE
		return n == v
	case 0xD: // LT
		return n != v
	case 0xE: // GT
		return !z && n == v
	}
	// LE
	return z || n != v
}
