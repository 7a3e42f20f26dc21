package cpu

import (
	"fmt"
	"strings"
)

// Register names a programmer-visible register.
type Register uint8

// Register numbers.
const (
	D0 Register = iota
	D1
	D2
	D3
	D4
	D5
	D6
	D7
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7 // stack pointer
	PC
	SR
)

// SP is an alias for A7.
const SP = A7

func (r Register) String() string {
	switch {
	case r <= D7:
		return fmt.Sprintf("D%d", r)
	case r <= A7:
		return fmt.Sprintf("A%d", r-A0)
	case r == PC:
		return "PC"
	case r == SR:
		return "SR"
	}
	return fmt.Sprintf("R%d", r)
}

// ParseRegister accepts D0-D7, A0-A7, SP, PC and SR in any case.
func ParseRegister(s string) (Register, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "PC":
		return PC, nil
	case "SR":
		return SR, nil
	case "SP":
		return SP, nil
	}
	if len(s) == 2 && s[1] >= '0' && s[1] <= '7' {
		n := Register(s[1] - '0')
		switch s[0] {
		case 'D':
			return D0 + n, nil
		case 'A':
			return A0 + n, nil
		}
	}
	return 0, fmt.Errorf("unknown register %q", s)
}

// Reg returns the value of a register. SR is zero-extended.
func (c *CPU) Reg(r Register) uint32 {
	switch {
	case r <= D7:
		return c.D[r]
	case r <= A7:
		return c.A[r-A0]
	case r == PC:
		return c.PC
	case r == SR:
		return uint32(c.SR)
	}
	return 0
}

// SetReg writes a register. Writes to SR keep the low 16 bits.
func (c *CPU) SetReg(r Register, v uint32) {
	switch {
	case r <= D7:
		c.D[r] = v
	case r <= A7:
		c.A[r-A0] = v
	case r == PC:
		c.PC = v
	case r == SR:
		c.SR = uint16(v)
	}
}

// SP returns the current stack pointer.
func (c *CPU) SP() uint32 {
	return c.A[7]
}

// SetSP sets the current stack pointer.
func (c *CPU) SetSP(v uint32) {
	c.A[7] = v
}
