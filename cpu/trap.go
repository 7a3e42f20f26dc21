package cpu

import (
	"errors"
	"fmt"
)

// Exception vector numbers raised by the engine.
const (
	VectorIllegal = 4
	VectorLineA   = 10
	VectorLineF   = 11
	VectorTrap0   = 32
)

// ErrException is wrapped by every ExceptionError.
var ErrException = errors.New("exception")

// ExceptionError reports an exception the engine has no vector table for.
type ExceptionError struct {
	Vector int
	Opcode uint16
	// PC is the address of the faulting instruction.
	PC uint32
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("exception vector %d: opcode %04X at %08X", e.Vector, e.Opcode, e.PC)
}

func (e *ExceptionError) Unwrap() error {
	return ErrException
}

// TrapEvent is raised when an intercepted Line-A word is executed.
type TrapEvent struct {
	// Opcode is the raw instruction word.
	Opcode uint16
	// Addr is where the trap word was fetched. PC already points past it.
	Addr uint32
}

// TrapHandler consumes intercepted Line-A words. A non-nil error stops execution.
type TrapHandler func(TrapEvent) error

// InstallIntercept routes the given Line-A word to the trap handler.
// Installing the same word twice has no further effect.
func (c *CPU) InstallIntercept(opcode uint16) {
	if c.intercepts == nil {
		c.intercepts = make(map[uint16]struct{})
	}
	c.intercepts[opcode] = struct{}{}
}

// Intercepted reports whether the word is routed to the trap handler.
func (c *CPU) Intercepted(opcode uint16) bool {
	_, ok := c.intercepts[opcode]
	return ok
}

// SetTrapHandler installs the callback for intercepted Line-A words.
func (c *CPU) SetTrapHandler(h TrapHandler) {
	c.onTrap = h
}

// opLineA handles 1010 xxxx xxxx xxxx. The PC is left past the trap word
// so execution resumes at the next instruction after the handler returns.
func (c *CPU) opLineA(inst *DecodedInstruction) error {
	at := c.PC - 2
	if c.onTrap == nil || !c.Intercepted(inst.Opcode) {
		return &ExceptionError{Vector: VectorLineA, Opcode: inst.Opcode, PC: at}
	}
	return c.onTrap(TrapEvent{Opcode: inst.Opcode, Addr: at})
}

// opTRAP handles the TRAP instruction.
// Format: 0100 1110 0100 <vector>
func (c *CPU) opTRAP(inst *DecodedInstruction) error {
	vector := inst.DstReg
	// TRAP #15 halts the machine.
	if vector == 15 {
		c.Running = false
		return nil
	}
	return &ExceptionError{Vector: VectorTrap0 + int(vector), Opcode: inst.Opcode, PC: c.PC - 2}
}

func (c *CPU) opLineF(inst *DecodedInstruction) error {
	return &ExceptionError{Vector: VectorLineF, Opcode: inst.Opcode, PC: c.PC - 2}
}

func (c *CPU) opILLEGAL(inst *DecodedInstruction) error {
	return &ExceptionError{Vector: VectorIllegal, Opcode: inst.Opcode, PC: c.PC - 2}
}
