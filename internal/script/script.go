// Package script runs Lua scripts as memory access handler callbacks.
//
// A script is a Lua chunk that is called for every matching bus cycle with
// the arguments handler name, program counter, accessed address and data
// bus value:
//
//	local name, pc, address, value = ...
//	if value == 0 then
//		log(string.format("%s cleared $%04X at $%04X", name, address, pc))
//	end
//
// Scripts can read memory using read_byte(address) and read_word(address).
package script

import (
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/bus"
	"github.com/retroenv/z80analyser/internal/memory"
	"github.com/retroenv/z80analyser/internal/memstats"
	lua "github.com/yuin/gopher-lua"
)

// Engine is a Lua state shared by all scripts of a session.
type Engine struct {
	logger *log.Logger
	mem    memory.Reader
	state  *lua.LState
}

// New returns a new script engine with the memory access functions registered.
func New(logger *log.Logger, mem memory.Reader) *Engine {
	e := &Engine{
		logger: logger,
		mem:    mem,
		state:  lua.NewState(),
	}

	e.state.SetGlobal("read_byte", e.state.NewFunction(e.readByte))
	e.state.SetGlobal("read_word", e.state.NewFunction(e.readWord))
	e.state.SetGlobal("log", e.state.NewFunction(e.log))
	return e
}

func (e *Engine) readByte(L *lua.LState) int {
	address := L.CheckInt(1)
	L.Push(lua.LNumber(e.mem.ReadMemory(uint16(address))))
	return 1
}

func (e *Engine) readWord(L *lua.LState) int {
	address := L.CheckInt(1)
	L.Push(lua.LNumber(e.mem.ReadMemoryWord(uint16(address))))
	return 1
}

func (e *Engine) log(L *lua.LState) int {
	e.logger.Info(L.CheckString(1))
	return 0
}

// Callback compiles the script source and returns a handler callback that
// runs it. Runtime errors of the script are logged and do not stop the
// emulation.
func (e *Engine) Callback(name, source string) (memstats.Callback, error) {
	fn, err := e.state.LoadString(source)
	if err != nil {
		return nil, fmt.Errorf("compiling script of handler '%s': %w", name, err)
	}

	callback := func(h *memstats.Handler, pc uint16, pins bus.Pins) {
		e.state.Push(fn)
		e.state.Push(lua.LString(h.Name))
		e.state.Push(lua.LNumber(pc))
		e.state.Push(lua.LNumber(pins.Address()))
		e.state.Push(lua.LNumber(pins.Data()))
		if err := e.state.PCall(4, 0, nil); err != nil {
			e.logger.Error("Handler script failed",
				log.String("handler", h.Name),
				log.Hex("pc", pc),
				log.Err(err))
		}
	}
	return callback, nil
}

// Global returns the value of a global Lua variable as string.
func (e *Engine) Global(name string) string {
	return e.state.GetGlobal(name).String()
}

// Close releases the Lua state.
func (e *Engine) Close() {
	e.state.Close()
}
