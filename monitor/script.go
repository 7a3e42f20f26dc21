package monitor

import (
	"context"
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/Urethramancer/m68kmac/cpu"
)

// Script runs a Lua file against the machine.
func (mon *Monitor) Script(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return mon.RunScript(ctx, path, string(src))
}

// RunScript runs Lua source against the machine. The script sees:
//
//	reg(name)                 register value
//	setreg(name, value)
//	peek(addr, size)          size is 1, 2 or 4
//	poke(addr, size, value)
//	step([n])                 returns true while the guest is running
//	run([limit])              returns the number of instructions executed
//	trapname(id)              name of an emulated trap, or nil
//	count(id)                 dispatch count of a trap
//	exec(line)                any monitor command
//
// print writes to the monitor output.
func (mon *Monitor) RunScript(ctx context.Context, name, src string) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	for fn, impl := range map[string]lua.LGFunction{
		"print":    mon.luaPrint,
		"reg":      mon.luaReg,
		"setreg":   mon.luaSetReg,
		"peek":     mon.luaPeek,
		"poke":     mon.luaPoke,
		"step":     mon.luaStep,
		"run":      mon.luaRun(ctx),
		"trapname": mon.luaTrapName,
		"count":    mon.luaCount,
		"exec":     mon.luaExec(ctx),
	} {
		L.SetGlobal(fn, L.NewFunction(impl))
	}

	if err := L.DoString(src); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

func checkRegister(L *lua.LState, n int) cpu.Register {
	r, err := cpu.ParseRegister(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return r
}

func checkSize(L *lua.LState, n int) cpu.Size {
	switch L.CheckInt(n) {
	case 1:
		return cpu.SizeByte
	case 2:
		return cpu.SizeWord
	case 4:
		return cpu.SizeLong
	}
	L.ArgError(n, "size must be 1, 2 or 4")
	return cpu.SizeInvalid
}

func checkUint32(L *lua.LState, n int) uint32 {
	return uint32(int64(L.CheckNumber(n)))
}

func (mon *Monitor) luaPrint(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.Get(i + 1).String()
	}
	mon.printf("%s\n", strings.Join(parts, "\t"))
	return 0
}

func (mon *Monitor) luaReg(L *lua.LState) int {
	L.Push(lua.LNumber(mon.m.CPU.Reg(checkRegister(L, 1))))
	return 1
}

func (mon *Monitor) luaSetReg(L *lua.LState) int {
	mon.m.CPU.SetReg(checkRegister(L, 1), checkUint32(L, 2))
	return 0
}

func (mon *Monitor) luaPeek(L *lua.LState) int {
	v, err := mon.m.CPU.Read(checkUint32(L, 1), checkSize(L, 2))
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (mon *Monitor) luaPoke(L *lua.LState) int {
	if err := mon.m.CPU.Write(checkUint32(L, 1), checkSize(L, 2), checkUint32(L, 3)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (mon *Monitor) luaStep(L *lua.LState) int {
	n := L.OptInt(1, 1)
	c := mon.m.CPU
	for i := 0; i < n && c.Running; i++ {
		if err := mon.m.Step(); err != nil {
			L.RaiseError("%v", err)
		}
	}
	L.Push(lua.LBool(c.Running))
	return 1
}

func (mon *Monitor) luaRun(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		n, err := mon.m.CPU.Run(ctx, uint64(L.OptInt64(1, 0)))
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(lua.LNumber(n))
		return 1
	}
}

func (mon *Monitor) luaTrapName(L *lua.LState) int {
	name, ok := mon.m.TrapName(uint16(L.CheckInt(1)))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(name))
	return 1
}

func (mon *Monitor) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(mon.m.Traps.Counts()[uint16(L.CheckInt(1))]))
	return 1
}

func (mon *Monitor) luaExec(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		if err := mon.Exec(ctx, L.CheckString(1)); err != nil {
			L.RaiseError("%v", err)
		}
		return 0
	}
}
