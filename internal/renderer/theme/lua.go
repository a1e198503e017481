package theme

import (
	"context"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// LoadLua runs a Lua theme script and decodes the global table it leaves
// in "theme". Only the base, table, string and math libraries are opened.
//
//	theme = {
//	  name = "Night",
//	  base = "default dark",
//	  captures = {
//	    keyword = { color = "#ff79c6", bold = true },
//	  },
//	}
func LoadLua(ctx context.Context, source string, registry *Registry) (*Theme, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if ctx != nil {
		L.SetContext(ctx)
	}

	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("open lua library %s: %w", lib.name, err)
		}
	}

	if err := L.DoString(source); err != nil {
		return nil, fmt.Errorf("%w: lua: %v", ErrInvalidSpec, err)
	}

	tbl, ok := L.GetGlobal("theme").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: lua script must set a global table named theme", ErrInvalidSpec)
	}
	spec, ok := luaToGo(tbl, make(map[*lua.LTable]bool)).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: theme table must have string keys", ErrInvalidSpec)
	}
	return Decode(spec, registry)
}

// LoadLuaFile reads and runs a Lua theme script.
func LoadLuaFile(ctx context.Context, path string, registry *Registry) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme %s: %w", path, err)
	}
	return LoadLua(ctx, string(data), registry)
}

func luaToGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return luaTableToGo(v, visited)
	default:
		return nil
	}
}

// luaTableToGo converts sequences to slices and everything else to maps.
func luaTableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = luaToGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = luaToGo(v, visited)
	})
	return m
}
