package traps

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Urethramancer/m68kmac/cpu"
	"github.com/Urethramancer/m68kmac/memmgr"
	"github.com/Urethramancer/m68kmac/rsrc"
)

// gestaltResponse is returned in A0 for every Gestalt selector.
const gestaltResponse = 0xDEADBEEF

type handlerFunc func(d *Dispatcher, call *Call) error

func handlerFor(id HandlerID) (handlerFunc, bool) {
	switch id {
	case HandlerNoop:
		return (*Dispatcher).noop, true
	case HandlerNewHandle:
		return (*Dispatcher).newHandle, true
	case HandlerNewHandleClear:
		return (*Dispatcher).newHandleClear, true
	case HandlerNewPtrClear:
		return (*Dispatcher).newPtrClear, true
	case HandlerGetHandleSize:
		return (*Dispatcher).getHandleSize, true
	case HandlerRecoverHandle:
		return (*Dispatcher).recoverHandle, true
	case HandlerBlockMove:
		return (*Dispatcher).blockMove, true
	case HandlerGestalt:
		return (*Dispatcher).gestalt, true
	case HandlerGetTrapAddress:
		return (*Dispatcher).getTrapAddress, true
	case HandlerGetResource:
		return (*Dispatcher).getResource, true
	}
	return nil, false
}

// osErr sign-extends a Toolbox result code into a register value.
func osErr(code int16) uint32 {
	return uint32(int32(code))
}

func hex32(v uint32) slog.Attr {
	return slog.String("value", fmt.Sprintf("%08X", v))
}

func (d *Dispatcher) noop(call *Call) error {
	d.log.Debug("trap ignored", slog.String("name", call.Trap.Name))
	return nil
}

// memError reports an allocation failure to the guest: A0 = nil, D0 = OSErr.
func (d *Dispatcher) memError(call *Call, size uint32, err error) error {
	d.log.Warn("allocation failed",
		slog.String("name", call.Trap.Name),
		slog.Int("size", int(size)),
		slog.String("error", err.Error()),
	)
	d.m.SetReg(cpu.A0, 0)
	d.m.SetReg(cpu.D0, osErr(memmgr.MemFullErr))
	return nil
}

// newHandle: D0 = size; A0 = handle, D0 = noErr.
func (d *Dispatcher) newHandle(call *Call) error {
	size := d.m.Reg(cpu.D0)
	d.log.Debug("NewHandle", slog.Int("size", int(size)))
	h, err := d.heap.NewHandle(size)
	if err != nil {
		return d.memError(call, size, err)
	}
	d.m.SetReg(cpu.A0, uint32(h))
	d.m.SetReg(cpu.D0, memmgr.NoErr)
	return nil
}

// newHandleClear: as newHandle, cleared by the memory manager.
func (d *Dispatcher) newHandleClear(call *Call) error {
	size := d.m.Reg(cpu.D0)
	d.log.Debug("NewHandleClear", slog.Int("size", int(size)))
	h, err := d.heap.NewHandleClear(size)
	if err != nil {
		return d.memError(call, size, err)
	}
	d.m.SetReg(cpu.A0, uint32(h))
	d.m.SetReg(cpu.D0, memmgr.NoErr)
	return nil
}

// newPtrClear: D0 = size; A0 = pointer. The block is cleared here through
// guest memory writes rather than by the memory manager.
func (d *Dispatcher) newPtrClear(call *Call) error {
	size := d.m.Reg(cpu.D0)
	d.log.Debug("NewPtrClear", slog.Int("size", int(size)))
	ptr, err := d.heap.NewPtr(size)
	if err != nil {
		return d.memError(call, size, err)
	}
	for i := uint32(0); i < size; i++ {
		if err := d.m.Write(ptr+i, cpu.SizeByte, 0); err != nil {
			return fmt.Errorf("failed to clear pointer block: %w", err)
		}
	}
	d.m.SetReg(cpu.A0, ptr)
	d.m.SetReg(cpu.D0, memmgr.NoErr)
	return nil
}

// getHandleSize: A0 = handle; D0 = size, or nilHandleErr for a bad handle.
func (d *Dispatcher) getHandleSize(call *Call) error {
	h := memmgr.Handle(d.m.Reg(cpu.A0))
	size, err := d.heap.HandleSize(h)
	if err != nil {
		d.log.Warn("GetHandleSize on unknown handle", hex32(uint32(h)))
		d.m.SetReg(cpu.D0, osErr(memmgr.NilHandleErr))
		return nil
	}
	d.m.SetReg(cpu.D0, size)
	return nil
}

// recoverHandle: A0 = pointer; A0 = handle, 0 when the pointer is unknown.
func (d *Dispatcher) recoverHandle(call *Call) error {
	ptr := d.m.Reg(cpu.A0)
	h := d.heap.RecoverHandle(ptr)
	if h == 0 {
		d.log.Warn("RecoverHandle on unknown pointer", hex32(ptr))
	}
	d.m.SetReg(cpu.A0, uint32(h))
	return nil
}

// blockMove: A0 = source, A1 = destination, D0 = count; D0 = noErr.
// Bytes are copied front to back even when the ranges overlap.
func (d *Dispatcher) blockMove(call *Call) error {
	src := d.m.Reg(cpu.A0)
	dst := d.m.Reg(cpu.A1)
	n := d.m.Reg(cpu.D0)

	if Overlaps(src, dst, n) {
		d.warning(&OverlapWarning{Src: src, Dst: dst, Count: n})
	}
	for i := uint32(0); i < n; i++ {
		b, err := d.m.Read(src+i, cpu.SizeByte)
		if err != nil {
			return err
		}
		if err := d.m.Write(dst+i, cpu.SizeByte, b); err != nil {
			return err
		}
	}
	d.m.SetReg(cpu.D0, memmgr.NoErr)
	return nil
}

// Overlaps reports whether [src, src+n) and [dst, dst+n) share any byte.
func Overlaps(src, dst, n uint32) bool {
	if n == 0 {
		return false
	}
	s, t, c := uint64(src), uint64(dst), uint64(n)
	return t < s+c && t+c > s
}

// gestalt: D0 = selector; A0 = a fixed response.
func (d *Dispatcher) gestalt(call *Call) error {
	sel := rsrc.Type(d.m.Reg(cpu.D0))
	b := sel.Bytes()
	d.log.Debug("Gestalt called", slog.String("selector", strconv.Quote(string(b[:]))))
	d.m.SetReg(cpu.A0, gestaltResponse)
	return nil
}

// getTrapAddress: D0.W = trap word; A0 = its call-through address.
func (d *Dispatcher) getTrapAddress(call *Call) error {
	num := uint16(d.m.Reg(cpu.D0))
	d.log.Debug("trap address query", slog.String("trap", fmt.Sprintf("%04X", num)))
	d.m.SetReg(cpu.A0, d.TrapAddress(num))
	return nil
}

// TrapAddress returns the call-through address for a trap word, or
// UnimplementedTrapAddr when the trap is not emulated.
func (d *Dispatcher) TrapAddress(num uint16) uint32 {
	if num == UnimplementedTrap {
		return UnimplementedTrapAddr
	}
	desc, err := d.reg.Lookup(num)
	if err != nil {
		return UnimplementedTrapAddr
	}
	return desc.CallThrough
}

// getResource: Args[0] = type, Args[1] = ID; the handle goes into the
// function result slot now on top of the stack.
func (d *Dispatcher) getResource(call *Call) error {
	if len(call.Args) != 2 {
		return fmt.Errorf("expected 2 arguments, got %d", len(call.Args))
	}
	typ := rsrc.Type(call.Args[0])
	id := SignExtend16(call.Args[1])
	d.log.Debug("GetResource", slog.String("type", typ.String()), slog.Int("id", int(id)))

	data, err := d.res.Lookup(typ, id)
	if err != nil {
		miss := &ResourceNotFoundError{Type: typ, ID: id, Err: err}
		d.log.Warn(miss.Error())
		if !d.nilMissing {
			return miss
		}
		return d.m.Write(call.SP, cpu.SizeLong, 0)
	}

	h, err := d.heap.NewHandle(uint32(len(data)))
	if err != nil {
		d.log.Warn("no room for resource", slog.String("type", typ.String()), slog.Int("id", int(id)))
		return d.m.Write(call.SP, cpu.SizeLong, 0)
	}
	ptr, err := d.heap.Deref(h)
	if err != nil {
		return err
	}
	if err := d.m.WriteBlock(ptr, data); err != nil {
		return fmt.Errorf("failed to copy resource data: %w", err)
	}
	d.log.Debug("resource loaded", slog.String("handle", fmt.Sprintf("%08X", uint32(h))), slog.Int("length", len(data)))
	return d.m.Write(call.SP, cpu.SizeLong, uint32(h))
}
