package cpu_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Urethramancer/m68kmac/cpu"
)

const (
	codeBase  = 0x1000
	stackTop  = 0x8000
	ramSize   = 0x10000
	trapWord  = 0xA9A0
	otherTrap = 0xA122
)

// newCPU loads words at codeBase and resets the CPU to run them.
func newCPU(t *testing.T, words ...uint16) *cpu.CPU {
	t.Helper()
	c := cpu.New(ramSize)
	if err := c.LoadCode(codeBase, cpu.WordsToBytes(words...)); err != nil {
		t.Fatalf("failed to load code: %v", err)
	}
	c.Reset(codeBase, stackTop)
	return c
}

func step(t *testing.T, c *cpu.CPU, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := c.Execute(); err != nil {
			t.Fatalf("step %d at %08X failed: %v", i, c.PC, err)
		}
	}
}

func TestMoveqAndFlags(t *testing.T) {
	tests := []struct {
		name  string
		op    uint16
		want  uint32
		flags uint16
	}{
		{"Positive", 0x7042, 0x42, 0},
		{"Zero", 0x7000, 0, cpu.SRZ},
		{"Negative", 0x70FF, 0xFFFFFFFF, cpu.SRN},
	}
	for _, tc := range tests {
		c := newCPU(t, tc.op)
		step(t, c, 1)
		if c.D[0] != tc.want {
			t.Errorf("[%s] D0 = %08X, want %08X", tc.name, c.D[0], tc.want)
		}
		if got := c.SR & (cpu.SRN | cpu.SRZ); got != tc.flags {
			t.Errorf("[%s] flags = %04X, want %04X", tc.name, got, tc.flags)
		}
	}
}

func TestPascalCallSequence(t *testing.T) {
	// clr.l -(sp); move.l #'CODE',-(sp); move.w #1,-(sp); movea.l (sp)+,a0
	c := newCPU(t,
		0x42A7,
		0x2F3C, 0x434F, 0x4445,
		0x3F3C, 0x0001,
		0x205F,
	)
	step(t, c, 3)
	if c.SP() != stackTop-10 {
		t.Fatalf("SP = %08X, want %08X", c.SP(), stackTop-10)
	}
	id, _ := c.Read(c.SP(), cpu.SizeWord)
	typ, _ := c.Read(c.SP()+2, cpu.SizeLong)
	result, _ := c.Read(c.SP()+6, cpu.SizeLong)
	if id != 1 || typ != 0x434F4445 || result != 0 {
		t.Fatalf("stack = %04X %08X %08X", id, typ, result)
	}

	step(t, c, 1)
	if c.A[0] != 0x0001434F {
		t.Errorf("A0 = %08X, want 0001434F", c.A[0])
	}
	if c.SP() != stackTop-6 {
		t.Errorf("SP = %08X, want %08X", c.SP(), stackTop-6)
	}
}

func TestArithmetic(t *testing.T) {
	// moveq #0,d0; subq.l #1,d0
	c := newCPU(t, 0x7000, 0x5380)
	step(t, c, 2)
	if c.D[0] != 0xFFFFFFFF {
		t.Fatalf("SUBQ: D0 = %08X", c.D[0])
	}
	if c.SR&(cpu.SRN|cpu.SRC|cpu.SRX) != cpu.SRN|cpu.SRC|cpu.SRX {
		t.Errorf("SUBQ: SR = %04X, want N, C and X set", c.SR)
	}

	// moveq #-1,d0; addq.l #1,d0
	c = newCPU(t, 0x70FF, 0x5280)
	step(t, c, 2)
	if c.D[0] != 0 || c.SR&cpu.SRZ == 0 || c.SR&cpu.SRC == 0 {
		t.Errorf("ADDQ: D0 = %08X SR = %04X", c.D[0], c.SR)
	}

	// moveq #5,d0; moveq #7,d1; add.l d1,d0
	c = newCPU(t, 0x7005, 0x7207, 0xD081)
	step(t, c, 3)
	if c.D[0] != 12 {
		t.Errorf("ADD: D0 = %d, want 12", c.D[0])
	}
}

func TestBranchAndReturn(t *testing.T) {
	// bsr.s +2; trap #15; moveq #1,d0; rts
	c := newCPU(t, 0x6102, 0x4E4F, 0x7001, 0x4E75)
	n, err := c.Run(context.Background(), 100)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if n != 4 {
		t.Errorf("executed %d instructions, want 4", n)
	}
	if c.Running {
		t.Error("TRAP #15 did not halt the CPU")
	}
	if c.D[0] != 1 {
		t.Errorf("D0 = %d, want 1", c.D[0])
	}
	if c.SP() != stackTop {
		t.Errorf("SP = %08X, want %08X", c.SP(), stackTop)
	}
}

func TestLea(t *testing.T) {
	c := newCPU(t, 0x41FA, 0x0010)
	step(t, c, 1)
	if want := uint32(codeBase + 2 + 0x10); c.A[0] != want {
		t.Errorf("A0 = %08X, want %08X", c.A[0], want)
	}
}

func TestLineAIntercept(t *testing.T) {
	c := newCPU(t, trapWord, 0x4E71)
	c.InstallIntercept(trapWord)
	c.InstallIntercept(trapWord)

	var events []cpu.TrapEvent
	c.SetTrapHandler(func(ev cpu.TrapEvent) error {
		if c.PC != codeBase+2 {
			t.Errorf("PC inside handler = %08X, want %08X", c.PC, codeBase+2)
		}
		events = append(events, ev)
		return nil
	})

	step(t, c, 1)
	if len(events) != 1 {
		t.Fatalf("handler called %d times, want 1", len(events))
	}
	if events[0].Opcode != trapWord || events[0].Addr != codeBase {
		t.Errorf("event = %+v", events[0])
	}
	if c.PC != codeBase+2 {
		t.Errorf("PC = %08X, want %08X", c.PC, codeBase+2)
	}
}

func TestLineAHandlerErrorStopsExecution(t *testing.T) {
	sentinel := errors.New("halt")
	c := newCPU(t, trapWord)
	c.InstallIntercept(trapWord)
	c.SetTrapHandler(func(cpu.TrapEvent) error { return sentinel })
	if err := c.Execute(); !errors.Is(err, sentinel) {
		t.Fatalf("Execute error = %v, want %v", err, sentinel)
	}
}

func TestLineANotIntercepted(t *testing.T) {
	c := newCPU(t, otherTrap)
	c.InstallIntercept(trapWord)
	c.SetTrapHandler(func(cpu.TrapEvent) error {
		t.Fatal("handler called for a word that was not installed")
		return nil
	})

	err := c.Execute()
	var ex *cpu.ExceptionError
	if !errors.As(err, &ex) {
		t.Fatalf("Execute error = %v, want ExceptionError", err)
	}
	if ex.Vector != cpu.VectorLineA || ex.Opcode != otherTrap || ex.PC != codeBase {
		t.Errorf("exception = %+v", ex)
	}
}

func TestOtherExceptions(t *testing.T) {
	tests := []struct {
		op     uint16
		vector int
	}{
		{0xF000, cpu.VectorLineF},
		{cpu.OPILLEGAL, cpu.VectorIllegal},
		{0x4E41, cpu.VectorTrap0 + 1},
	}
	for _, tc := range tests {
		c := newCPU(t, tc.op)
		var ex *cpu.ExceptionError
		if err := c.Execute(); !errors.As(err, &ex) || ex.Vector != tc.vector || !errors.Is(err, cpu.ErrException) {
			t.Errorf("%04X: error = %v, want vector %d", tc.op, err, tc.vector)
		}
	}
}

func TestBusErrors(t *testing.T) {
	c := cpu.New(0x100)
	if _, err := c.Read(0xFF, cpu.SizeWord); !errors.Is(err, cpu.ErrBus) {
		t.Errorf("straddling read error = %v, want ErrBus", err)
	}
	if err := c.Write(0x1000, cpu.SizeByte, 1); !errors.Is(err, cpu.ErrBus) {
		t.Errorf("out of range write error = %v, want ErrBus", err)
	}

	c.MapROM(0xFFC00000, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	v, err := c.Read(0xFFC00000, cpu.SizeLong)
	if err != nil || v != 0xDEADBEEF {
		t.Errorf("ROM read = %08X, %v", v, err)
	}
	if err := c.Write(0xFFC00000, cpu.SizeLong, 0); !errors.Is(err, cpu.ErrBus) {
		t.Errorf("ROM write error = %v, want ErrBus", err)
	}
}

func TestRunLimitAndContext(t *testing.T) {
	// bra.s -2 spins forever.
	c := newCPU(t, 0x60FE)
	n, err := c.Run(context.Background(), 50)
	if err != nil || n != 50 {
		t.Fatalf("Run = %d, %v; want 50, nil", n, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Run with cancelled context = %v", err)
	}
}

func TestParseRegister(t *testing.T) {
	tests := []struct {
		in   string
		want cpu.Register
	}{
		{"d0", cpu.D0},
		{"A7", cpu.A7},
		{"sp", cpu.A7},
		{"pc", cpu.PC},
		{"SR", cpu.SR},
	}
	for _, tc := range tests {
		got, err := cpu.ParseRegister(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseRegister(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
	for _, bad := range []string{"", "D8", "X1", "A10"} {
		if _, err := cpu.ParseRegister(bad); err == nil {
			t.Errorf("ParseRegister(%q) succeeded", bad)
		}
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		s     cpu.Size
		bytes int
		name  string
	}{
		{cpu.SizeInvalid, 0, "?"},
		{cpu.SizeByte, 1, "B"},
		{cpu.SizeWord, 2, "W"},
		{cpu.SizeLong, 4, "L"},
	}
	for _, tc := range tests {
		if got := tc.s.Bytes(); got != tc.bytes {
			t.Errorf("%v.Bytes() = %d; want %d", tc.s, got, tc.bytes)
		}
		if got := tc.s.String(); got != tc.name {
			t.Errorf("Size(%d).String() = %q; want %q", int(tc.s), got, tc.name)
		}
	}
}

func TestWordsAndBytes(t *testing.T) {
	b := cpu.WordsToBytes(0x4E71, 0xA9A0)
	if string(b) != "\x4E\x71\xA9\xA0" {
		t.Fatalf("WordsToBytes = % X", b)
	}
	w := cpu.BytesToWords([]byte{0x12, 0x34, 0x56})
	if len(w) != 2 || w[0] != 0x1234 || w[1] != 0x5600 {
		t.Fatalf("BytesToWords = %04X", w)
	}
}
