package traps

import (
	"errors"
	"testing"

	"github.com/Urethramancer/m68kmac/cpu"
)

func TestEveryTrapHasAnImplementation(t *testing.T) {
	for _, d := range ToolboxDescriptors() {
		if _, ok := handlerFor(d.Handler); !ok {
			t.Errorf("%s (%04X) uses %v, which has no implementation", d.Name, d.ID, d.Handler)
		}
	}
	for h := HandlerID(0); h < numHandlers; h++ {
		if _, ok := handlerFor(h); !ok {
			t.Errorf("%v has no implementation", h)
		}
	}
	if _, ok := handlerFor(numHandlers); ok {
		t.Error("out of range handler resolved")
	}
}

func TestCallThroughAddressesAreUnique(t *testing.T) {
	seen := make(map[uint32]string)
	for _, d := range ToolboxDescriptors() {
		if other, dup := seen[d.CallThrough]; dup {
			t.Errorf("%s and %s share call-through %08X", d.Name, other, d.CallThrough)
		}
		seen[d.CallThrough] = d.Name
	}
}

func TestDispatchRejectsReentry(t *testing.T) {
	d := New(Toolbox(), cpu.New(0x100), nil, nil)
	d.busy = true
	if err := d.Dispatch(cpu.TrapEvent{Opcode: 0xA029}); !errors.Is(err, ErrReentrant) {
		t.Errorf("Dispatch error = %v, want ErrReentrant", err)
	}
}
