package traps

import (
	"fmt"
	"log/slog"

	"github.com/Urethramancer/m68kmac/cpu"
	"github.com/Urethramancer/m68kmac/memmgr"
	"github.com/Urethramancer/m68kmac/rsrc"
)

// Machine is the CPU state trap handlers read and write.
type Machine interface {
	Reg(r cpu.Register) uint32
	SetReg(r cpu.Register, v uint32)
	SP() uint32
	SetSP(v uint32)
	Read(addr uint32, size cpu.Size) (uint32, error)
	Write(addr uint32, size cpu.Size, val uint32) error
	WriteBlock(addr uint32, data []byte) error
}

// Heap is the memory manager the allocation traps delegate to.
type Heap interface {
	NewHandle(size uint32) (memmgr.Handle, error)
	NewHandleClear(size uint32) (memmgr.Handle, error)
	NewPtr(size uint32) (uint32, error)
	HandleSize(h memmgr.Handle) (uint32, error)
	RecoverHandle(ptr uint32) memmgr.Handle
	Deref(h memmgr.Handle) (uint32, error)
}

// Interceptor is a CPU that can route Line-A words to a handler.
type Interceptor interface {
	InterceptSink
	SetTrapHandler(h cpu.TrapHandler)
}

// Call is the state of one trap invocation. It is built fresh for every
// dispatch and dropped when the handler returns.
type Call struct {
	Trap Descriptor
	// Args are the marshaled stack arguments, first Pascal parameter at index 0.
	Args []uint32
	// SP is the stack pointer after the arguments were popped. It has
	// already been written to the CPU when the handler runs.
	SP uint32
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for trap diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithWarnings receives non-fatal diagnostics such as *OverlapWarning.
func WithWarnings(fn func(error)) Option {
	return func(d *Dispatcher) {
		d.warn = fn
	}
}

// WithNilOnMissingResource makes _GetResource return a nil handle for a
// missing resource, like the real Resource Manager, instead of failing the
// dispatch with a *ResourceNotFoundError.
func WithNilOnMissingResource() Option {
	return func(d *Dispatcher) {
		d.nilMissing = true
	}
}

// Dispatcher routes intercepted trap words to their host implementations.
type Dispatcher struct {
	reg  *Registry
	m    Machine
	heap Heap
	res  rsrc.Store

	log        *slog.Logger
	warn       func(error)
	nilMissing bool

	busy   bool
	last   uint16
	counts map[uint16]int
}

// New creates a dispatcher over the given trap table, CPU, memory manager
// and resource store.
func New(reg *Registry, m Machine, heap Heap, res rsrc.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:    reg,
		m:      m,
		heap:   heap,
		res:    res,
		log:    slog.New(slog.DiscardHandler),
		last:   UnimplementedTrap,
		counts: make(map[uint16]int),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry returns the trap table.
func (d *Dispatcher) Registry() *Registry {
	return d.reg
}

// Attach installs every trap of the table into c and makes the dispatcher
// its trap handler.
func (d *Dispatcher) Attach(c Interceptor) {
	d.reg.RegisterAll(c)
	c.SetTrapHandler(d.Dispatch)
}

// Dispatch emulates the trap named by ev.
//
// Stack parameters are popped and the new stack pointer is written to the
// CPU before the handler runs; handlers get it in Call.SP. The program
// counter is never touched: the CPU has already stepped past the trap word.
func (d *Dispatcher) Dispatch(ev cpu.TrapEvent) error {
	if d.busy {
		return ErrReentrant
	}

	desc, err := d.reg.Lookup(ev.Opcode)
	if err != nil {
		d.log.Error("unsupported trap",
			slog.String("trap", fmt.Sprintf("%04X", ev.Opcode)),
			slog.String("pc", fmt.Sprintf("%08X", ev.Addr)),
		)
		return err
	}

	call := &Call{Trap: desc, SP: d.m.SP()}
	if len(desc.Params) > 0 {
		args, sp, err := Marshal(desc.Params, call.SP, d.m)
		if err != nil {
			return fmt.Errorf("%s: failed to pop arguments: %w", desc.Name, err)
		}
		d.m.SetSP(sp)
		call.Args, call.SP = args, sp
	}

	d.last = desc.ID
	d.counts[desc.ID]++
	d.log.Debug("trap invoked",
		slog.String("name", desc.Name),
		slog.String("trap", fmt.Sprintf("%04X", desc.ID)),
		slog.String("pc", fmt.Sprintf("%08X", ev.Addr)),
	)

	h, ok := handlerFor(desc.Handler)
	if !ok {
		return fmt.Errorf("%s: no implementation for %v", desc.Name, desc.Handler)
	}

	d.busy = true
	defer func() { d.busy = false }()
	if err := h(d, call); err != nil {
		return fmt.Errorf("%s: %w", desc.Name, err)
	}
	return nil
}

// LastTrap returns the most recently dispatched trap word, or
// UnimplementedTrap before the first dispatch.
func (d *Dispatcher) LastTrap() uint16 {
	return d.last
}

// Counts returns how many times each trap has been dispatched.
func (d *Dispatcher) Counts() map[uint16]int {
	out := make(map[uint16]int, len(d.counts))
	for id, n := range d.counts {
		out[id] = n
	}
	return out
}

func (d *Dispatcher) warning(err error) {
	d.log.Warn(err.Error())
	if d.warn != nil {
		d.warn(err)
	}
}
