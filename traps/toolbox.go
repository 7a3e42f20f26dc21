package traps

import "github.com/Urethramancer/m68kmac/cpu"

// callThroughBase is where the synthetic trap entry points start.
const callThroughBase = 0xFFF30000

var toolbox = []struct {
	id      uint16
	name    string
	handler HandlerID
	params  []cpu.Size
}{
	{0xA01B, "_SetZone", HandlerNoop, nil},
	{0xA029, "_HLock", HandlerNoop, nil},
	{0xA02E, "_BlockMove", HandlerBlockMove, nil},
	{0xA055, "_StripAddress", HandlerNoop, nil},
	{0xA064, "_MoveHHi", HandlerNoop, nil},
	{0xA0AD, "_GestaltDispatch", HandlerNoop, nil},
	{0xA0BD, "_CacheFlush", HandlerNoop, nil},
	{0xA11A, "_GetZone", HandlerNoop, nil},
	{0xA122, "_NewHandle", HandlerNewHandle, nil},
	{0xA128, "_RecoverHandle", HandlerRecoverHandle, nil},
	{0xA162, "_PurgeSpace", HandlerNoop, nil},
	{0xA1AD, "_Gestalt", HandlerGestalt, nil},
	{0xA025, "_GetHandleSize", HandlerGetHandleSize, nil},
	{0xA31E, "_NewPtrClear", HandlerNewPtrClear, nil},
	{0xA322, "_NewHandleClear", HandlerNewHandleClear, nil},
	{0xA346, "_GetOSTrapAddress", HandlerGetTrapAddress, nil},
	{0xA746, "_GetToolTrapAddress", HandlerGetTrapAddress, nil},
	{0xA994, "_CurResFile", HandlerNoop, nil},
	// FUNCTION GetResource(theType: ResType; theID: INTEGER): Handle;
	{0xA9A0, "_GetResource", HandlerGetResource, []cpu.Size{cpu.SizeWord, cpu.SizeLong}},
}

// ToolboxDescriptors returns the built-in trap table. Call-through
// addresses are assigned in table order, four bytes apart.
func ToolboxDescriptors() []Descriptor {
	out := make([]Descriptor, len(toolbox))
	for i, t := range toolbox {
		out[i] = Descriptor{
			ID:          t.id,
			Name:        t.name,
			Handler:     t.handler,
			CallThrough: callThroughBase + uint32(i)*4,
			Params:      t.params,
		}
	}
	return out
}

// Toolbox returns a registry holding the built-in trap table.
func Toolbox() *Registry {
	r, err := NewRegistry(ToolboxDescriptors())
	if err != nil {
		panic(err)
	}
	return r
}
