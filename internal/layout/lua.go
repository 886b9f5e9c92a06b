package layout

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyforge/internal/input/key"
)

// LuaTimeout bounds the run time of a layout script.
var LuaTimeout = 2 * time.Second

// runLua executes a layout script in a sandboxed state. The script builds
// the overlay by calling name, alias and char.
func runLua(path string, src []byte) (*Overlay, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibraries(L)

	ctx, cancel := context.WithTimeout(context.Background(), LuaTimeout)
	defer cancel()
	L.SetContext(ctx)

	o := &Overlay{
		Aliases: make(map[string]string),
		Chars:   make(key.CharMap),
	}

	L.SetGlobal("name", L.NewFunction(func(L *lua.LState) int {
		o.Name = L.CheckString(1)
		return 0
	}))
	L.SetGlobal("alias", L.NewFunction(func(L *lua.LState) int {
		raw := L.CheckString(1)
		target := L.CheckString(2)
		o.Aliases[raw] = target
		return 0
	}))
	L.SetGlobal("char", L.NewFunction(func(L *lua.LState) int {
		r, err := singleRune(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		k := L.CheckString(2)
		shift := L.OptBool(3, false)
		o.Chars[r] = key.Char{Key: key.ID(k), Shift: shift}
		return 0
	}))

	if err := L.DoString(string(src)); err != nil {
		msg := err.Error()
		if ae, ok := err.(*lua.ApiError); ok && ae.Object != nil {
			msg = ae.Object.String()
		}
		if ctx.Err() != nil {
			msg = fmt.Sprintf("script exceeded %s", LuaTimeout)
		}
		return nil, &ParseError{Path: path, Message: msg, Err: err}
	}
	return o, nil
}

// openSafeLibraries opens the base, table, string and math libraries and
// removes the base functions that load code from files or strings.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}
