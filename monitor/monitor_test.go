package monitor_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Urethramancer/m68kmac/cpu"
	"github.com/Urethramancer/m68kmac/loader"
	"github.com/Urethramancer/m68kmac/mac"
	"github.com/Urethramancer/m68kmac/monitor"
	"github.com/Urethramancer/m68kmac/rsrc"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"$1F", 0x1F, true},
		{"0x10", 16, true},
		{"0XfF", 255, true},
		{"#10", 10, true},
		{"42", 42, true},
		{"$FFFFFFFF", 0xFFFFFFFF, true},
		{"$100000000", 0, false},
		{"zz", 0, false},
		{"", 0, false},
		{"$", 0, false},
	}
	for _, tc := range tests {
		got, err := monitor.ParseNumber(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParseNumber(%q) = %d, %v", tc.in, got, err)
		}
	}
}

func TestParseCommand(t *testing.T) {
	c := monitor.ParseCommand("  STEP 3  ")
	if c.Name != "step" || len(c.Args) != 1 || c.Args[0] != "3" {
		t.Errorf("got %+v", c)
	}
	if c := monitor.ParseCommand("   "); c.Name != "" || c.Args != nil {
		t.Errorf("blank line parsed as %+v", c)
	}
}

// boot starts a machine whose entry point loads STR 128 and halts.
func boot(t *testing.T) (*mac.Machine, *monitor.Monitor, *bytes.Buffer) {
	t.Helper()
	jt := make([]byte, 24)
	copy(jt[16:], cpu.WordsToBytes(0x0000, 0x3F3C, 0x0001, 0xA9F0))
	code := cpu.WordsToBytes(
		0x0000, 0x0001,
		0x42A7,
		0x2F3C, 0x5354, 0x5220,
		0x3F3C, 0x0080,
		0xA9A0,
		0x205F,
		0x4E4F,
	)
	f := rsrc.NewFork()
	f.Add(&rsrc.Resource{Type: loader.CodeType, ID: 0, Data: jt})
	f.Add(&rsrc.Resource{Type: loader.CodeType, ID: 1, Data: code})
	f.Add(&rsrc.Resource{Type: rsrc.MustType("STR "), ID: 128, Data: []byte("\x02Hi")})

	m, err := mac.New(mac.DefaultConfig(), f)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Boot(); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return m, monitor.New(m, &out), &out
}

func exec(t *testing.T, mon *monitor.Monitor, line string) {
	t.Helper()
	if err := mon.Exec(t.Context(), line); err != nil {
		t.Fatalf("%q failed: %v", line, err)
	}
}

func TestStepAndRepeat(t *testing.T) {
	m, mon, out := boot(t)
	entry := m.CPU.PC

	exec(t, mon, "step")
	if m.CPU.PC != entry+2 {
		t.Fatalf("PC = %08X after one step, want %08X", m.CPU.PC, entry+2)
	}
	exec(t, mon, "")
	if m.CPU.PC != entry+8 {
		t.Fatalf("PC = %08X after repeat, want %08X", m.CPU.PC, entry+8)
	}
	exec(t, mon, "si 2")
	if !strings.Contains(out.String(), "movea.l") {
		t.Errorf("step output does not show the next instruction:\n%s", out)
	}
	exec(t, mon, "step 10")
	if m.CPU.Running || !strings.Contains(out.String(), "halted") {
		t.Errorf("machine did not halt:\n%s", out)
	}
}

func TestUntil(t *testing.T) {
	m, mon, out := boot(t)
	target := m.CPU.PC + 16
	exec(t, mon, fmt.Sprintf("until $%X", target))
	if m.CPU.PC != target {
		t.Fatalf("PC = %08X, want %08X", m.CPU.PC, target)
	}
	if !strings.Contains(out.String(), "trap") {
		t.Errorf("until output:\n%s", out)
	}
	if m.CPU.A[0] == 0 {
		t.Error("_GetResource did not run")
	}

	exec(t, mon, "until 0x100")
	if !strings.Contains(out.String(), "halted at") {
		t.Errorf("until past halt:\n%s", out)
	}
}

func TestListAndTraps(t *testing.T) {
	m, mon, out := boot(t)
	exec(t, mon, "list")
	for _, want := range []string{"clr.l", "move.l", "move.w", "_GetResource", "movea.l"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("listing lacks %q:\n%s", want, out)
		}
	}

	out.Reset()
	exec(t, mon, fmt.Sprintf("disas $%X 1", m.CPU.PC+12))
	if lines := strings.Count(out.String(), "\n"); lines != 1 || !strings.Contains(out.String(), "_GetResource") {
		t.Errorf("disas output:\n%s", out)
	}

	exec(t, mon, "until $100")
	out.Reset()
	exec(t, mon, "traps")
	if !strings.Contains(out.String(), "_GetResource") || !strings.Contains(out.String(), "last trap: A9A0") {
		t.Errorf("traps output:\n%s", out)
	}
}

func TestRegsAndSet(t *testing.T) {
	m, mon, out := boot(t)
	exec(t, mon, "set d3=$1234")
	exec(t, mon, "set A2 = 0x20000")
	if m.CPU.D[3] != 0x1234 || m.CPU.A[2] != 0x20000 {
		t.Errorf("D3 = %08X A2 = %08X", m.CPU.D[3], m.CPU.A[2])
	}
	exec(t, mon, "regs")
	for _, want := range []string{"D3 00001234", "A2 00020000", "PC ", "SR 2700"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("regs lacks %q:\n%s", want, out)
		}
	}

	for _, bad := range []string{"set", "set d0", "set q9=1", "set d0=zz"} {
		if err := mon.Exec(t.Context(), bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestDump(t *testing.T) {
	m, mon, out := boot(t)
	_ = m.CPU.WriteBlock(0x3000, []byte("Hello, monitor!!abc"))
	exec(t, mon, "dump $3000 19")
	s := out.String()
	if !strings.Contains(s, "00003000  48 65 6C 6C 6F") || !strings.Contains(s, "|Hello, monitor!!|") {
		t.Errorf("dump output:\n%s", s)
	}
	if !strings.Contains(s, "00003010  61 62 63") {
		t.Errorf("second row missing:\n%s", s)
	}
	if err := mon.Exec(t.Context(), "dump $4FFFF 8"); !errors.Is(err, cpu.ErrBus) {
		t.Errorf("dump past RAM = %v, want ErrBus", err)
	}
}

func TestErrors(t *testing.T) {
	_, mon, _ := boot(t)
	if err := mon.Exec(t.Context(), "frobnicate"); err == nil {
		t.Error("unknown command accepted")
	}
	if err := mon.Exec(t.Context(), "quit"); !errors.Is(err, monitor.ErrQuit) {
		t.Errorf("quit = %v", err)
	}
	if err := mon.Exec(t.Context(), "until"); err == nil {
		t.Error("until without address accepted")
	}
}

func TestServe(t *testing.T) {
	m, mon, out := boot(t)
	entry := m.CPU.PC
	in := strings.NewReader("step\n\nbogus\nhelp\nquit\nstep\n")
	if err := mon.Serve(t.Context(), in); err != nil {
		t.Fatal(err)
	}
	if m.CPU.PC != entry+8 {
		t.Errorf("PC = %08X, commands after quit were run", m.CPU.PC)
	}
	s := out.String()
	if !strings.Contains(s, "error: unknown command: bogus") || !strings.Contains(s, "until ADDR") {
		t.Errorf("session output:\n%s", s)
	}
}

func TestEntryLayout(t *testing.T) {
	m, _, _ := boot(t)
	word, _ := m.CPU.Read(m.CPU.PC, cpu.SizeWord)
	if word != 0x42A7 {
		t.Errorf("first instruction = %04X", word)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 1)
	got, _ := m.CPU.ReadBlock(m.Entry.Base, 4)
	if !bytes.Equal(got, hdr[:]) {
		t.Errorf("segment header = % X", got)
	}
}

func TestScript(t *testing.T) {
	m, mon, out := boot(t)
	src := `
setreg("d5", 0x55)
poke(0x3000, 4, 0xCAFEBABE)
assert(peek(0x3000, 2) == 0xCAFE)
while step() do end
print(trapname(0xA9A0), count(0xA9A0), trapname(0xA000))
print(string.format("%X", reg("pc")))
exec("regs")
`
	if err := mon.RunScript(t.Context(), "inline", src); err != nil {
		t.Fatalf("script failed: %v", err)
	}
	if m.CPU.D[5] != 0x55 || m.CPU.Running {
		t.Errorf("D5 = %X running = %v", m.CPU.D[5], m.CPU.Running)
	}
	s := out.String()
	if !strings.Contains(s, "_GetResource\t1\tnil") {
		t.Errorf("script output:\n%s", s)
	}
	if !strings.Contains(s, fmt.Sprintf("%X\n", m.CPU.PC)) || !strings.Contains(s, "D5 00000055") {
		t.Errorf("script output:\n%s", s)
	}
}

func TestScriptErrors(t *testing.T) {
	_, mon, _ := boot(t)
	for _, src := range []string{
		`peek(0x7FFFFFF0, 4)`,
		`reg("q9")`,
		`peek(0, 3)`,
		`exec("bogus")`,
		`this is not lua`,
	} {
		if err := mon.RunScript(t.Context(), "inline", src); err == nil {
			t.Errorf("%q succeeded", src)
		}
	}
	if err := mon.Exec(t.Context(), "script /nonexistent/file.lua"); err == nil {
		t.Error("missing script accepted")
	}
}
