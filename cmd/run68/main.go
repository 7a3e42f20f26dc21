package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"

	"github.com/grimdork/climate/arg"

	"github.com/Urethramancer/m68kmac/mac"
	"github.com/Urethramancer/m68kmac/monitor"
	"github.com/Urethramancer/m68kmac/rsrc"
)

// run68 boots a classic Macintosh application from its resource fork and
// either runs it or drops into the monitor.
func main() {
	opt := arg.New("run68")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "r", "rom", "ROM image to map read-only.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "b", "rom-base", "Base address of the ROM image.", "0xFFC00000", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "s", "steps", "Stop after this many instructions (0 runs until halt).", 0, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "i", "interactive", "Start the monitor instead of running.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "x", "script", "Lua script to run against the booted machine.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "l", "list", "List the application's resources and exit.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "n", "nil-missing", "Return nil handles for missing resources.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "v", "verbose", "Log every trap.", false, false, arg.VarBool, nil)
	opt.SetPositional("PATH", "Application file.", "", true, arg.VarString)

	err := opt.Parse(os.Args)
	if err != nil {
		if errors.Is(err, arg.ErrNoArgs) {
			opt.PrintHelp()
			return
		}
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(2)
	}
	if opt.GetBool("help") {
		opt.PrintHelp()
		return
	}

	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opt *arg.Options) error {
	level := slog.LevelInfo
	if opt.GetBool("verbose") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	path := opt.GetPosString("PATH")
	fork, err := rsrc.Open(path)
	if err != nil {
		return err
	}
	if opt.GetBool("list") {
		listResources(fork)
		return nil
	}

	cfg := mac.DefaultConfig()
	cfg.Logger = log
	cfg.ROMPath = opt.GetString("rom")
	cfg.NilMissingResources = opt.GetBool("nil-missing")
	if cfg.ROMBase, err = monitor.ParseNumber(opt.GetString("rom-base")); err != nil {
		return fmt.Errorf("--rom-base: %w", err)
	}

	m, err := mac.New(cfg, fork)
	if err != nil {
		return err
	}
	if err := m.Boot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mon := monitor.New(m, os.Stdout)
	if script := opt.GetString("script"); script != "" {
		if err := mon.Script(ctx, script); err != nil {
			return err
		}
		if !opt.GetBool("interactive") {
			summary(m, m.CPU.Steps)
			return nil
		}
	}

	if opt.GetBool("interactive") {
		fmt.Println("Welcome to the Mac 68k simulator.")
		fmt.Println("Enter 'help' for a list of debugging commands.")
		return mon.Interactive(ctx, os.Stdin, os.Stdout)
	}

	steps := opt.GetInt("steps")
	if steps < 0 {
		return fmt.Errorf("--steps must not be negative")
	}
	n, err := m.Run(ctx, uint64(steps))
	summary(m, n)
	return err
}

func listResources(f *rsrc.Fork) {
	for _, t := range f.Types() {
		for _, id := range f.IDs(t) {
			r, _ := f.Get(t, id)
			fmt.Printf("'%s' %6d %8d %s\n", t, id, len(r.Data), r.Name)
		}
	}
}

func summary(m *mac.Machine, n uint64) {
	fmt.Printf("%d instructions, PC %08X\n", n, m.CPU.PC)
	counts := m.Traps.Counts()
	ids := make([]uint16, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return a < b
	})
	for _, id := range ids {
		name, _ := m.TrapName(id)
		fmt.Printf("%04X %-22s %d\n", id, name, counts[id])
	}
}
