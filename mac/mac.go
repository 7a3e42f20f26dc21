// Package mac assembles an emulated Macintosh: a 68000, a heap zone, an
// application's resources and the trap dispatcher that stands in for ROM.
package mac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Urethramancer/m68kmac/cpu"
	"github.com/Urethramancer/m68kmac/loader"
	"github.com/Urethramancer/m68kmac/memmgr"
	"github.com/Urethramancer/m68kmac/rsrc"
	"github.com/Urethramancer/m68kmac/traps"
)

// LowMemROMBase is the low-memory global holding the ROM's base address.
const LowMemROMBase = 0x2AE

// ErrNotBooted is returned by Run before a successful Boot.
var ErrNotBooted = errors.New("machine has not been booted")

// Config describes the machine layout.
type Config struct {
	// RAMSize is the size of RAM mapped from address 0.
	RAMSize uint32
	// StackTop is the initial stack pointer.
	StackTop uint32
	// HeapStart and HeapEnd bound the application heap zone.
	HeapStart uint32
	HeapEnd   uint32

	// ROMPath optionally names a ROM image to map read-only at ROMBase.
	ROMPath string
	ROMBase uint32

	// NilMissingResources makes _GetResource return nil for missing
	// resources instead of stopping the run.
	NilMissingResources bool

	Logger *slog.Logger
}

// DefaultConfig returns five 64 KiB banks of RAM with the stack below a
// heap that fills the upper three.
func DefaultConfig() Config {
	return Config{
		RAMSize:   0x50000,
		StackTop:  0x1FF00,
		HeapStart: 0x20000,
		HeapEnd:   0x50000,
		ROMBase:   0xFFC00000,
	}
}

func (cfg Config) validate() error {
	switch {
	case cfg.RAMSize == 0:
		return errors.New("no RAM configured")
	case cfg.HeapStart >= cfg.HeapEnd || cfg.HeapEnd > cfg.RAMSize:
		return fmt.Errorf("heap %08X-%08X does not fit in %d bytes of RAM", cfg.HeapStart, cfg.HeapEnd, cfg.RAMSize)
	case cfg.StackTop > cfg.RAMSize || cfg.StackTop&1 != 0:
		return fmt.Errorf("invalid stack top %08X", cfg.StackTop)
	case cfg.StackTop > cfg.HeapStart && cfg.StackTop <= cfg.HeapEnd:
		return fmt.Errorf("stack top %08X is inside the heap", cfg.StackTop)
	}
	if cfg.ROMPath != "" && cfg.ROMBase < cfg.RAMSize {
		return fmt.Errorf("ROM base %08X overlaps RAM", cfg.ROMBase)
	}
	return nil
}

// Machine is a configured emulator.
type Machine struct {
	CPU   *cpu.CPU
	Zone  *memmgr.Zone
	Traps *traps.Dispatcher
	// Entry is set by Boot.
	Entry *loader.Entry

	cfg Config
	res rsrc.Store
	log *slog.Logger
}

// New builds a machine over the resources in res.
func New(cfg Config, res rsrc.Store) (*Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	m := &Machine{
		CPU: cpu.New(int(cfg.RAMSize)),
		cfg: cfg,
		res: res,
		log: log,
	}

	if cfg.ROMPath != "" {
		if err := m.loadROM(cfg.ROMPath); err != nil {
			return nil, err
		}
	}

	zone, err := memmgr.New(m.CPU, cfg.HeapStart, cfg.HeapEnd)
	if err != nil {
		return nil, err
	}
	m.Zone = zone

	opts := []traps.Option{traps.WithLogger(log)}
	if cfg.NilMissingResources {
		opts = append(opts, traps.WithNilOnMissingResource())
	}
	m.Traps = traps.New(traps.Toolbox(), m.CPU, zone, res, opts...)
	m.Traps.Attach(m.CPU)
	return m, nil
}

func (m *Machine) loadROM(path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load ROM: %w", err)
	}
	m.CPU.MapROM(m.cfg.ROMBase, image)
	if err := m.CPU.Write(LowMemROMBase, cpu.SizeLong, m.cfg.ROMBase); err != nil {
		return err
	}
	m.log.Info("ROM mapped",
		slog.String("base", fmt.Sprintf("%08X", m.cfg.ROMBase)),
		slog.Int("size", len(image)),
	)
	return nil
}

// Boot loads the application's entry segment and resets the CPU to it.
func (m *Machine) Boot() error {
	e, err := loader.Bootstrap(m.res, m.Zone, m.CPU)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	m.Entry = e
	m.log.Info("entry segment loaded",
		slog.Int("segment", int(e.Segment)),
		slog.String("offset", fmt.Sprintf("%X", e.Offset)),
		slog.String("handle", fmt.Sprintf("%08X", uint32(e.Handle))),
		slog.String("base", fmt.Sprintf("%08X", e.Base)),
	)
	m.CPU.Reset(e.PC(), m.cfg.StackTop)
	return nil
}

// Run executes up to limit instructions, or until the guest halts when
// limit is 0.
func (m *Machine) Run(ctx context.Context, limit uint64) (uint64, error) {
	if m.Entry == nil {
		return 0, ErrNotBooted
	}
	n, err := m.CPU.Run(ctx, limit)
	if err != nil {
		m.log.Error("execution stopped",
			slog.String("pc", fmt.Sprintf("%08X", m.CPU.PC)),
			slog.String("last_trap", fmt.Sprintf("%04X", m.Traps.LastTrap())),
			slog.String("error", err.Error()),
		)
	}
	return n, err
}

// Step executes a single instruction.
func (m *Machine) Step() error {
	return m.CPU.Execute()
}

// TrapName returns the name of an emulated trap word, if there is one.
func (m *Machine) TrapName(op uint16) (string, bool) {
	name, err := m.Traps.Registry().DisplayName(op)
	return name, err == nil
}
