package cpu

// CPU memory and registers.
type CPU struct {
	// D is for data registers.
	D [8]uint32
	// A is for address registers. A7 is the current stack pointer.
	A [8]uint32
	// PC is the program counter.
	PC uint32
	// SR is the status register.
	SR uint16

	// Mem is guest RAM, mapped from address 0.
	Mem []byte
	// ROM is an optional read-only window mapped at ROMBase.
	ROM     []byte
	ROMBase uint32

	// Steps counts executed instructions since the last Reset.
	Steps uint64
	// Running or not.
	Running bool

	intercepts map[uint16]struct{}
	onTrap     TrapHandler
}

// Status register flags.
const (
	// SRC is carry
	SRC = 1 << 0
	// SRV is overflow
	SRV = 1 << 1
	// SRZ is zero
	SRZ = 1 << 2
	// SRN is negative
	SRN = 1 << 3
	// SRX is extend
	SRX = 1 << 4
	// SRS is supervisor state
	SRS = 1 << 13
	// SRT is trace mode
	SRT = 1 << 15
)

// New creates a new CPU instance with the given amount of RAM.
func New(memsize int) *CPU {
	return &CPU{
		Mem:        make([]byte, memsize),
		intercepts: make(map[uint16]struct{}),
	}
}

// Reset sets the program counter and stack pointer and starts the CPU
// in supervisor mode with interrupts masked.
func (c *CPU) Reset(pc, sp uint32) {
	c.PC = pc
	c.A[7] = sp
	c.SR = SRS | 0x0700
	c.Steps = 0
	c.Running = true
}

// MapROM installs a read-only image at base.
func (c *CPU) MapROM(base uint32, image []byte) {
	c.ROMBase = base
	c.ROM = image
}

// LoadCode to specified address.
func (c *CPU) LoadCode(addr uint32, code []byte) error {
	if err := c.WriteBlock(addr, code); err != nil {
		return err
	}
	c.PC = addr
	return nil
}
