// Package traps emulates Macintosh Toolbox and OS traps.
//
// The 68000 raises a Line-A exception for every instruction word whose top
// nibble is 0xA. The classic Mac OS used those words as calls into ROM; the
// Dispatcher intercepts them, pops stack-passed arguments and runs a host
// implementation in place of the missing ROM routine.
package traps

import (
	"fmt"
	"sort"

	"github.com/Urethramancer/m68kmac/cpu"
)

const (
	// UnimplementedTrap is _Unimplemented, the trap the OS reports for
	// anything it does not provide.
	UnimplementedTrap = 0xA89F
	// UnimplementedTrapAddr is returned by the trap address queries for
	// traps that are not emulated.
	UnimplementedTrapAddr = 0xFFFF0000
)

// HandlerID selects the host implementation of a trap.
type HandlerID int

// Handler identifiers. Several traps may share one handler.
const (
	HandlerNoop HandlerID = iota
	HandlerNewHandle
	HandlerNewHandleClear
	HandlerNewPtrClear
	HandlerGetHandleSize
	HandlerRecoverHandle
	HandlerBlockMove
	HandlerGestalt
	HandlerGetTrapAddress
	HandlerGetResource
	numHandlers
)

var handlerNames = [numHandlers]string{
	"noop",
	"new-handle",
	"new-handle-clear",
	"new-ptr-clear",
	"get-handle-size",
	"recover-handle",
	"block-move",
	"gestalt",
	"get-trap-address",
	"get-resource",
}

func (h HandlerID) String() string {
	if h < 0 || h >= numHandlers {
		return fmt.Sprintf("handler(%d)", int(h))
	}
	return handlerNames[h]
}

// Descriptor describes one emulated trap.
type Descriptor struct {
	// ID is the trap word as it appears in guest code.
	ID uint16
	// Name is used for diagnostics only.
	Name    string
	Handler HandlerID
	// CallThrough is the synthetic address reported by the trap address
	// queries. Nothing is ever executed there.
	CallThrough uint32
	// Params are the widths of the stack-passed arguments. The first entry
	// is the one on top of the stack.
	Params []cpu.Size
}

// Registry is an immutable trap table.
type Registry struct {
	byID map[uint16]Descriptor
	ids  []uint16
}

// NewRegistry validates descs and builds a registry from them.
func NewRegistry(descs []Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[uint16]Descriptor, len(descs))}
	for _, d := range descs {
		if d.ID&0xF000 != 0xA000 {
			return nil, fmt.Errorf("trap %s: %04X is not a Line-A word", d.Name, d.ID)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("trap %s: %04X registered twice", d.Name, d.ID)
		}
		if _, ok := handlerFor(d.Handler); !ok {
			return nil, fmt.Errorf("trap %s: no implementation for %v", d.Name, d.Handler)
		}
		for _, p := range d.Params {
			if p != cpu.SizeWord && p != cpu.SizeLong {
				return nil, fmt.Errorf("trap %s: parameter width %v is not word or long", d.Name, p)
			}
		}
		d.Params = append([]cpu.Size(nil), d.Params...)
		r.byID[d.ID] = d
		r.ids = append(r.ids, d.ID)
	}
	sort.Slice(r.ids, func(i, j int) bool { return r.ids[i] < r.ids[j] })
	return r, nil
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id uint16) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, &UnknownTrapError{ID: id}
	}
	d.Params = append([]cpu.Size(nil), d.Params...)
	return d, nil
}

// Has reports whether id is in the table.
func (r *Registry) Has(id uint16) bool {
	_, ok := r.byID[id]
	return ok
}

// DisplayName returns the trap's name, e.g. "_NewHandle".
func (r *Registry) DisplayName(id uint16) (string, error) {
	d, ok := r.byID[id]
	if !ok {
		return "", &UnknownTrapError{ID: id}
	}
	return d.Name, nil
}

// IDs returns every trap word in ascending order.
func (r *Registry) IDs() []uint16 {
	return append([]uint16(nil), r.ids...)
}

// Len returns the number of traps.
func (r *Registry) Len() int {
	return len(r.ids)
}

// InterceptSink receives the trap words the CPU should route to the dispatcher.
type InterceptSink interface {
	InstallIntercept(opcode uint16)
}

// RegisterAll installs every trap word of the table into sink.
func (r *Registry) RegisterAll(sink InterceptSink) {
	for _, id := range r.ids {
		sink.InstallIntercept(id)
	}
}
