// demo_script.go - Lua driver for scripted and automated play

/*
bare-metal-tetris - the classic falling-block kernel on an emulated PC/AT

https://github.com/nathan242/bare-metal-tetris
License: GPLv3 or later
*/

package main

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

/*
ScriptDriver runs a Lua file against a live machine, typing keys into
the 8042 and reading the screen back, which is enough to demo the
game unattended or to assert on it from a harness. Keys go through
the controller like every other frontend, so a script exercises the
full interrupt path rather than poking game state.

The script sees these globals:

	press(key)            hold a key down ("a", "d", "w", "s", "q", "p", "r")
	release(key)          let it go
	tap(key)              press and release in one call
	wait_ticks(n)         sleep until the kernel counts n more ticks
	ticks()               current kernel tick count
	screen(row, col, n)   n characters of screen text at row, col
	stop()                stop the machine

The Lua state is bound to the machine lifetime: stopping the machine
cancels a running script at its next instruction.
*/
type ScriptDriver struct {
	machine *Machine
}

func NewScriptDriver(machine *Machine) *ScriptDriver {
	return &ScriptDriver{machine: machine}
}

// Run executes the script file and returns its first error. The
// machine keeps running afterwards either way.
func (d *ScriptDriver) Run(path string) error {
	L := lua.NewState()
	defer L.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-d.machine.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	L.SetContext(ctx)

	d.registerAPI(L)

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

func (d *ScriptDriver) registerAPI(L *lua.LState) {
	L.SetGlobal("press", L.NewFunction(d.luaPress))
	L.SetGlobal("release", L.NewFunction(d.luaRelease))
	L.SetGlobal("tap", L.NewFunction(d.luaTap))
	L.SetGlobal("wait_ticks", L.NewFunction(d.luaWaitTicks))
	L.SetGlobal("ticks", L.NewFunction(d.luaTicks))
	L.SetGlobal("screen", L.NewFunction(d.luaScreen))
	L.SetGlobal("stop", L.NewFunction(d.luaStop))
}

// scriptKeyCode resolves a one-character Lua string to a make code,
// raising a Lua error for anything with no key behind it.
func scriptKeyCode(L *lua.LState, arg int) uint8 {
	s := L.CheckString(arg)
	if len(s) != 1 {
		L.RaiseError("key must be a single character, got %q", s)
		return 0
	}
	ch := s[0]
	if ch >= 'A' && ch <= 'Z' {
		ch += 'a' - 'A'
	}
	if ch >= 128 {
		L.RaiseError("key %q is not ASCII", s)
		return 0
	}
	code := makeCodeForChar[ch]
	if code == 0 {
		L.RaiseError("no key produces %q", s)
		return 0
	}
	return code
}

func (d *ScriptDriver) luaPress(L *lua.LState) int {
	d.machine.Keyboard().Press(scriptKeyCode(L, 1))
	return 0
}

func (d *ScriptDriver) luaRelease(L *lua.LState) int {
	d.machine.Keyboard().Release(scriptKeyCode(L, 1))
	return 0
}

// luaTap presses and releases in one call, letting the controller
// drain in between. Sent back to back, the break would displace the
// make from the driver's pending slot before the game has polled it
// and the tap would read as a release alone. The drain wait is capped
// so a tap against a parked kernel still returns.
func (d *ScriptDriver) luaTap(L *lua.LState) int {
	code := scriptKeyCode(L, 1)
	kbc := d.machine.Keyboard()
	kbc.Press(code)

	deadline := time.Now().Add(time.Second)
	for kbc.Buffered() > 0 && time.Now().Before(deadline) {
		select {
		case <-d.machine.Done():
			return 0
		case <-time.After(time.Millisecond):
		}
	}

	kbc.Release(code)
	return 0
}

// luaWaitTicks blocks the script until the kernel has counted the
// requested ticks. Returns early when the machine stops; the
// cancelled context then ends the script at its next instruction.
func (d *ScriptDriver) luaWaitTicks(L *lua.LState) int {
	n := L.CheckInt(1)
	if n <= 0 {
		return 0
	}
	target := d.machine.Ticks() + uint64(n)
	for d.machine.Ticks() < target {
		select {
		case <-d.machine.Done():
			return 0
		case <-time.After(time.Millisecond):
		}
	}
	return 0
}

func (d *ScriptDriver) luaTicks(L *lua.LState) int {
	L.Push(lua.LNumber(d.machine.Ticks()))
	return 1
}

// luaScreen reads a run of characters from the text page, with
// attribute bytes stripped, so scripts can match on labels and
// numbers the way a player reads them.
func (d *ScriptDriver) luaScreen(L *lua.LState) int {
	row := L.CheckInt(1)
	col := L.CheckInt(2)
	n := L.CheckInt(3)

	if row < 0 || row >= VGA_TEXT_ROWS || col < 0 || col >= VGA_TEXT_COLS || n < 0 {
		L.RaiseError("screen read out of range: row %d col %d len %d", row, col, n)
		return 0
	}
	if col+n > VGA_TEXT_COLS {
		n = VGA_TEXT_COLS - col
	}

	vga := d.machine.Video()
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		ch := byte(vga.Cell(row, col+i))
		if ch < 0x20 || ch > 0x7E {
			ch = ' '
		}
		buf[i] = ch
	}
	L.Push(lua.LString(buf))
	return 1
}

func (d *ScriptDriver) luaStop(L *lua.LState) int {
	d.machine.Stop()
	return 0
}
