package pawmedia

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RegisterStandardLibrary registers the built-in commands
func (ps *PawMedia) RegisterStandardLibrary() {
	ps.RegisterCommands(map[string]Handler{
		"set":    cmdSet,
		"unset":  cmdUnset,
		"append": cmdAppend,
		"incr":   cmdIncr,
		"list":   cmdList,
		"llength": func(ctx *Context) Result {
			if len(ctx.Args) != 1 {
				return ctx.WrongArgs("list")
			}
			items, err := ctx.Args[0].List()
			if err != nil {
				return ctx.Error(err)
			}
			ctx.SetResult(NewIntValue(int64(len(items))))
			return BoolStatus(true)
		},
		"lindex": cmdLindex,
		"eq":     compareCmd(func(a, b string) bool { return a == b }),
		"ne":     compareCmd(func(a, b string) bool { return a != b }),
		"lt":     intCompareCmd(func(a, b int64) bool { return a < b }),
		"gt":     intCompareCmd(func(a, b int64) bool { return a > b }),
		"if":     cmdIf,
		"eval":   cmdEval,
		"catch":  cmdCatch,
		"error":  cmdError,
		"return": func(ctx *Context) Result {
			if len(ctx.Args) > 1 {
				return ctx.WrongArgs("?value?")
			}
			if len(ctx.Args) == 1 {
				return EarlyReturn{Value: ctx.Args[0]}
			}
			return EarlyReturn{}
		},
		"result": func(ctx *Context) Result {
			if len(ctx.Args) > 1 {
				return ctx.WrongArgs("?value?")
			}
			if len(ctx.Args) == 1 {
				ctx.SetResult(ctx.Args[0])
			}
			return BoolStatus(true)
		},
		"exit": func(ctx *Context) Result {
			code := 0
			if len(ctx.Args) > 1 {
				return ctx.WrongArgs("?returnCode?")
			}
			if len(ctx.Args) == 1 {
				n, err := ctx.Args[0].Int()
				if err != nil {
					return ctx.Error(err)
				}
				code = int(n)
			}
			ps.logger.DebugCat(CatSystem, "exit %d requested", code)
			return ExitResult{Code: code}
		},
		"echo": func(ctx *Context) Result {
			if err := ps.echo(ctx.Args); err != nil {
				return ctx.Error(err)
			}
			return BoolStatus(true)
		},
		"macro":  ps.cmdMacro,
		"after":  ps.cmdAfter,
		"update": ps.cmdUpdate,
	})
}

func cmdSet(ctx *Context) Result {
	switch len(ctx.Args) {
	case 1:
		name := ctx.Args[0].String()
		v, ok := ctx.state.GetVariable(name)
		if !ok {
			return ctx.Errorf("can't read \"%s\": no such variable", name)
		}
		ctx.SetResult(v)
	case 2:
		ctx.state.SetVariable(ctx.Args[0].String(), ctx.Args[1])
		ctx.logger.TraceCat(CatVariable, "set %s", ctx.Args[0])
		ctx.SetResult(ctx.Args[1])
	default:
		return ctx.WrongArgs("varName ?newValue?")
	}
	return BoolStatus(true)
}

func cmdUnset(ctx *Context) Result {
	for _, a := range ctx.Args {
		if !ctx.state.DeleteVariable(a.String()) {
			return ctx.Errorf("can't unset \"%s\": no such variable", a)
		}
	}
	return BoolStatus(true)
}

// cmdAppend changes the variable's value in place unless something else
// also holds it.
func cmdAppend(ctx *Context) Result {
	if len(ctx.Args) < 1 {
		return ctx.WrongArgs("varName ?value ...?")
	}
	name := ctx.Args[0].String()
	v, ok := ctx.state.GetVariable(name)
	if !ok {
		v = NewValue("")
	} else if v.IsShared() || !ctx.state.HasLocalVariable(name) {
		v = v.Dup()
	}
	var b strings.Builder
	b.WriteString(v.String())
	for _, a := range ctx.Args[1:] {
		b.WriteString(a.String())
	}
	v.SetString(b.String())
	ctx.state.SetVariable(name, v)
	ctx.SetResult(v)
	return BoolStatus(true)
}

func cmdIncr(ctx *Context) Result {
	if len(ctx.Args) < 1 || len(ctx.Args) > 2 {
		return ctx.WrongArgs("varName ?increment?")
	}
	name := ctx.Args[0].String()
	by := int64(1)
	if len(ctx.Args) == 2 {
		n, err := ctx.Args[1].Int()
		if err != nil {
			return ctx.Error(err)
		}
		by = n
	}
	cur := int64(0)
	if v, ok := ctx.state.GetVariable(name); ok {
		n, err := v.Int()
		if err != nil {
			return ctx.Error(err)
		}
		cur = n
	}
	nv := NewIntValue(cur + by)
	ctx.state.SetVariable(name, nv)
	ctx.SetResult(nv)
	return BoolStatus(true)
}

func cmdList(ctx *Context) Result {
	ctx.SetResult(NewListValue(ctx.Args...))
	return BoolStatus(true)
}

func cmdLindex(ctx *Context) Result {
	if len(ctx.Args) != 2 {
		return ctx.WrongArgs("list index")
	}
	items, err := ctx.Args[0].List()
	if err != nil {
		return ctx.Error(err)
	}
	idx := ctx.Args[1].String()
	var i int64
	if idx == "end" {
		i = int64(len(items) - 1)
	} else if i, err = ctx.Args[1].Int(); err != nil {
		return ctx.Error(err)
	}
	if i < 0 || i >= int64(len(items)) {
		ctx.SetResultString("")
		return BoolStatus(true)
	}
	ctx.SetResult(items[i])
	return BoolStatus(true)
}

func compareCmd(test func(a, b string) bool) Handler {
	return func(ctx *Context) Result {
		if len(ctx.Args) != 2 {
			return ctx.WrongArgs("a b")
		}
		ctx.SetResult(NewBoolValue(test(ctx.Args[0].String(), ctx.Args[1].String())))
		return BoolStatus(true)
	}
}

func intCompareCmd(test func(a, b int64) bool) Handler {
	return func(ctx *Context) Result {
		if len(ctx.Args) != 2 {
			return ctx.WrongArgs("a b")
		}
		a, err := ctx.Args[0].Int()
		if err != nil {
			return ctx.Error(err)
		}
		b, err := ctx.Args[1].Int()
		if err != nil {
			return ctx.Error(err)
		}
		ctx.SetResult(NewBoolValue(test(a, b)))
		return BoolStatus(true)
	}
}

// truth runs a condition script. It holds when the script succeeds with
// an empty or true result.
func truth(ctx *Context, script string) (bool, Result) {
	res := ctx.executor.ExecuteWithState(script, ctx.state, "")
	if !IsSuccess(res) {
		return false, res
	}
	r := ctx.state.GetResult()
	if r.String() == "" {
		return true, nil
	}
	b, err := r.Bool()
	if err != nil {
		return false, ctx.Error(err)
	}
	return b, nil
}

// cmdIf: if cond body ?elseif cond body ...? ?else body?
func cmdIf(ctx *Context) Result {
	args := ctx.Args
	for len(args) > 0 {
		if len(args) < 2 {
			return ctx.WrongArgs("cond body ?elseif cond body ...? ?else body?")
		}
		ok, res := truth(ctx, args[0].String())
		if res != nil {
			return res
		}
		if ok {
			return ctx.executor.ExecuteWithState(args[1].String(), ctx.state, "")
		}
		args = args[2:]
		if len(args) == 0 {
			break
		}
		switch args[0].String() {
		case "elseif":
			args = args[1:]
		case "else":
			if len(args) != 2 {
				return ctx.WrongArgs("cond body ?elseif cond body ...? ?else body?")
			}
			return ctx.executor.ExecuteWithState(args[1].String(), ctx.state, "")
		default:
			return ctx.Errorf("expected \"elseif\" or \"else\" but got \"%s\"", args[0])
		}
	}
	ctx.SetResultString("")
	return BoolStatus(true)
}

func joinArgs(args []*Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func cmdEval(ctx *Context) Result {
	if len(ctx.Args) == 0 {
		return ctx.WrongArgs("arg ?arg ...?")
	}
	return ctx.executor.ExecuteWithState(joinArgs(ctx.Args), ctx.state, "")
}

// cmdCatch: catch script ?varName?. The result is 0 on success, 1 on
// error and 2 on return.
func cmdCatch(ctx *Context) Result {
	if len(ctx.Args) < 1 || len(ctx.Args) > 2 {
		return ctx.WrongArgs("script ?varName?")
	}
	res := ctx.executor.ExecuteWithState(ctx.Args[0].String(), ctx.state, "")
	code := 0
	msg := ctx.state.GetResult()
	switch r := res.(type) {
	case ExitResult:
		return r
	case EarlyReturn:
		code = 2
		if r.Value != nil {
			msg = r.Value
		}
	default:
		if !IsSuccess(res) {
			code = 1
			ctx.state.resetError()
		}
	}
	if len(ctx.Args) == 2 {
		ctx.state.SetVariable(ctx.Args[1].String(), msg)
	}
	ctx.SetResult(NewIntValue(int64(code)))
	return BoolStatus(true)
}

// cmdError: error message ?info? ?code?
func cmdError(ctx *Context) Result {
	if len(ctx.Args) < 1 || len(ctx.Args) > 3 {
		return ctx.WrongArgs("message ?errorInfo? ?errorCode?")
	}
	ctx.SetResult(ctx.Args[0])
	if len(ctx.Args) >= 2 && ctx.Args[1].String() != "" {
		g := ctx.state.Global()
		g.SetVariable(varErrorInfo, NewValue(ctx.Args[1].String()))
		g.mu.Lock()
		g.errorInProgress = true
		g.mu.Unlock()
	}
	if len(ctx.Args) == 3 {
		ctx.state.SetErrorCode(ctx.Args[2].String())
	} else {
		ctx.state.SetErrorCode("NONE")
	}
	return BoolStatus(false)
}

// cmdMacro: macro name ?params? body
func (ps *PawMedia) cmdMacro(ctx *Context) Result {
	var params []string
	var body string
	switch len(ctx.Args) {
	case 2:
		body = ctx.Args[1].String()
	case 3:
		items, err := ctx.Args[1].List()
		if err != nil {
			return ctx.Error(err)
		}
		for _, it := range items {
			params = append(params, it.String())
		}
		body = ctx.Args[2].String()
	default:
		return ctx.WrongArgs("name ?params? body")
	}
	name := ctx.Args[0].String()
	if _, ok := ps.executor.GetCommand(name); ok {
		return ctx.Errorf("can't define macro \"%s\": a command of that name exists", name)
	}
	ps.macroSystem.DefineMacro(name, params, body, ctx.Position)
	ctx.SetResultString("")
	return BoolStatus(true)
}

// cmdAfter: after ms ?script ...?, after cancel id, after info
func (ps *PawMedia) cmdAfter(ctx *Context) Result {
	if len(ctx.Args) == 0 {
		return ctx.WrongArgs("option ?arg ...?")
	}
	switch ctx.Args[0].String() {
	case "cancel":
		if len(ctx.Args) != 2 {
			return ctx.WrongArgs("cancel id")
		}
		if id, ok := parseAfterID(ctx.Args[1].String()); ok {
			ps.loop.Cancel(id)
		}
		return BoolStatus(true)
	case "info":
		ids := ps.loop.PendingTimers()
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = fmt.Sprintf("after#%d", id)
		}
		ctx.SetResult(NewStringList(names...))
		return BoolStatus(true)
	}

	ms, err := ctx.Args[0].Int()
	if err != nil {
		return ctx.Error(err)
	}
	if ms < 0 {
		ms = 0
	}
	delay := time.Duration(ms) * time.Millisecond
	if len(ctx.Args) == 1 {
		time.Sleep(delay)
		return BoolStatus(true)
	}
	script := joinArgs(ctx.Args[1:])
	id := ps.loop.After(delay, func() {
		if err := ps.executor.EvalPreserving(ps.state, script); err != nil {
			var se *ScriptError
			if errors.As(err, &se) {
				se.ErrorInfo += "\n    (\"after\" script)"
			}
			ps.BackgroundError(err)
		}
	})
	ctx.SetResultString(fmt.Sprintf("after#%d", id))
	return BoolStatus(true)
}

func parseAfterID(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "after#"))
	return n, err == nil
}

// cmdUpdate processes every pending event without waiting
func (ps *PawMedia) cmdUpdate(ctx *Context) Result {
	if len(ctx.Args) != 0 {
		return ctx.WrongArgs("")
	}
	for ps.loop.DoOneEvent(AllEvents | DontWait) {
	}
	return BoolStatus(true)
}
