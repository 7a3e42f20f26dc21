// Package monitor is an interactive debugger for a running machine.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Urethramancer/m68kmac/cpu"
	"github.com/Urethramancer/m68kmac/disasm"
	"github.com/Urethramancer/m68kmac/mac"
)

const (
	prompt      = "> "
	listDefault = 5
	// untilLimit bounds the until command when the address is never reached.
	untilLimit = 10_000_000
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

// Monitor executes debugger commands against a machine.
type Monitor struct {
	m    *mac.Machine
	out  io.Writer
	prev string
}

// New creates a monitor that writes to out.
func New(m *mac.Machine, out io.Writer) *Monitor {
	return &Monitor{m: m, out: out}
}

func (mon *Monitor) printf(format string, args ...any) {
	fmt.Fprintf(mon.out, format, args...)
}

// Exec runs one input line. An empty line repeats the previous command.
func (mon *Monitor) Exec(ctx context.Context, line string) error {
	if strings.TrimSpace(line) == "" {
		if mon.prev == "" {
			return nil
		}
		line = mon.prev
	}
	mon.prev = line

	cmd := ParseCommand(line)
	switch cmd.Name {
	case "quit", "exit":
		return ErrQuit
	case "step", "si":
		return mon.step(cmd.Args)
	case "until":
		return mon.until(ctx, cmd.Args)
	case "regs":
		mon.regs()
	case "list", "disas":
		return mon.list(cmd.Args)
	case "dump":
		return mon.dump(cmd.Args)
	case "set":
		return mon.set(cmd.Args)
	case "traps":
		mon.traps()
	case "script":
		if len(cmd.Args) < 1 {
			return errors.New("usage: script FILE")
		}
		return mon.Script(ctx, cmd.Args[0])
	case "help":
		mon.help()
	default:
		return fmt.Errorf("unknown command: %s", cmd.Name)
	}
	return nil
}

// Serve reads commands from in until EOF or quit.
func (mon *Monitor) Serve(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	mon.printf("%s", prompt)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if done := mon.report(mon.Exec(ctx, sc.Text())); done {
			return nil
		}
		mon.printf("%s", prompt)
	}
	return sc.Err()
}

// Interactive runs the monitor with line editing when in is a terminal and
// falls back to Serve otherwise.
func (mon *Monitor) Interactive(ctx context.Context, in *os.File, out io.Writer) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		mon.out = out
		return mon.Serve(ctx, in)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, prompt)
	mon.out = t
	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if done := mon.report(mon.Exec(ctx, line)); done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// report prints a command error and tells whether the session is over.
func (mon *Monitor) report(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrQuit):
		return true
	}
	mon.printf("error: %v\n", err)
	return false
}

func (mon *Monitor) step(args []string) error {
	count := uint32(1)
	if len(args) > 0 {
		n, err := ParseNumber(args[0])
		if err != nil {
			return fmt.Errorf("invalid instruction count: %w", err)
		}
		count = n
	}

	c := mon.m.CPU
	for range count {
		if !c.Running {
			mon.printf("halted\n")
			break
		}
		if err := mon.m.Step(); err != nil {
			return err
		}
	}
	mon.printf("%s\n", mon.line(c.PC))
	return nil
}

func (mon *Monitor) until(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("missing address")
	}
	addr, err := ParseNumber(args[0])
	if err != nil {
		return err
	}
	mon.printf("execute until %08X\n", addr)

	c := mon.m.CPU
	for n := 0; c.PC != addr; n++ {
		if !c.Running {
			mon.printf("halted at %08X\n", c.PC)
			return nil
		}
		if n >= untilLimit {
			return fmt.Errorf("%08X not reached after %d instructions", addr, n)
		}
		if n&0x3FF == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := mon.m.Step(); err != nil {
			return err
		}
	}
	mon.printf("%s\n", mon.line(c.PC))
	return nil
}

func (mon *Monitor) regs() {
	c := mon.m.CPU
	for i := range 8 {
		mon.printf("D%d %08X", i, c.D[i])
		if i%4 == 3 {
			mon.printf("\n")
		} else {
			mon.printf("  ")
		}
	}
	for i := range 8 {
		mon.printf("A%d %08X", i, c.A[i])
		if i%4 == 3 {
			mon.printf("\n")
		} else {
			mon.printf("  ")
		}
	}
	mon.printf("PC %08X  SR %04X  %s\n", c.PC, c.SR, flags(c.SR))
}

// flags renders the condition codes as XNZVC with '-' for clear bits.
func flags(sr uint16) string {
	bits := []struct {
		mask uint16
		name byte
	}{
		{cpu.SRX, 'X'},
		{cpu.SRN, 'N'},
		{cpu.SRZ, 'Z'},
		{cpu.SRV, 'V'},
		{cpu.SRC, 'C'},
	}
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = '-'
		if sr&b.mask != 0 {
			out[i] = b.name
		}
	}
	return string(out)
}

// code reads up to disasm.MaxLen bytes at addr, stopping at unmapped memory.
func (mon *Monitor) code(addr uint32) []byte {
	out := make([]byte, 0, disasm.MaxLen)
	for i := uint32(0); i < disasm.MaxLen; i++ {
		v, err := mon.m.CPU.Read(addr+i, cpu.SizeByte)
		if err != nil {
			break
		}
		out = append(out, byte(v))
	}
	return out
}

func (mon *Monitor) line(addr uint32) disasm.Line {
	return disasm.Decode(addr, mon.code(addr), mon.m.Traps.Registry())
}

func (mon *Monitor) list(args []string) error {
	addr, count := mon.m.CPU.PC, uint32(listDefault)
	var err error
	if len(args) > 0 {
		if addr, err = ParseNumber(args[0]); err != nil {
			return err
		}
	}
	if len(args) > 1 {
		if count, err = ParseNumber(args[1]); err != nil {
			return err
		}
	}
	for range count {
		l := mon.line(addr)
		if l.Len() == 0 {
			return fmt.Errorf("unable to read code at %08X", addr)
		}
		mon.printf("%s\n", l)
		addr += l.Len()
	}
	return nil
}

func (mon *Monitor) dump(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: dump ADDR COUNT")
	}
	addr, err := ParseNumber(args[0])
	if err != nil {
		return err
	}
	count, err := ParseNumber(args[1])
	if err != nil {
		return err
	}
	data, err := mon.m.CPU.ReadBlock(addr, count)
	if err != nil {
		return err
	}
	for off := 0; off < len(data); off += 16 {
		row := data[off:min(off+16, len(data))]
		mon.printf("%08X  % -48X |%s|\n", addr+uint32(off), row, printable(row))
	}
	return nil
}

func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c < 0x20 || c > 0x7E {
			c = '.'
		}
		out[i] = c
	}
	return string(out)
}

func (mon *Monitor) set(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: set REG=VALUE")
	}
	name, value, ok := strings.Cut(strings.Join(args, ""), "=")
	if !ok {
		return errors.New("usage: set REG=VALUE")
	}
	r, err := cpu.ParseRegister(name)
	if err != nil {
		return err
	}
	v, err := ParseNumber(value)
	if err != nil {
		return err
	}
	mon.m.CPU.SetReg(r, v)
	return nil
}

func (mon *Monitor) traps() {
	reg := mon.m.Traps.Registry()
	counts := mon.m.Traps.Counts()
	for _, id := range reg.IDs() {
		d, _ := reg.Lookup(id)
		mon.printf("%04X  %-22s %08X  %d\n", id, d.Name, d.CallThrough, counts[id])
	}
	mon.printf("last trap: %04X\n", mon.m.Traps.LastTrap())
}

func (mon *Monitor) help() {
	mon.printf(`step [N]        execute N instructions, 1 when omitted
si              alias for step
until ADDR      execute until ADDR is reached
regs            print the registers
list [ADDR [N]] disassemble N instructions at ADDR (default PC, 5)
dump ADDR N     dump N bytes starting at ADDR
set REG=VALUE   change a register
traps           list emulated traps with call counts
script FILE     run a Lua script against the machine
quit            leave the monitor
Numbers are decimal, or hex with a $ or 0x prefix; # forces decimal.
`)
}
