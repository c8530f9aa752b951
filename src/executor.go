package pawmedia

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// maxNestingDepth bounds recursive evaluation
const maxNestingDepth = 1000

// Executor runs parsed scripts against an ExecutionState
type Executor struct {
	mu              sync.RWMutex
	commands        map[string]Handler
	fallbackHandler func(*Context) Result
	logger          *Logger

	cacheMu    sync.Mutex
	parseCache map[string][]*ParsedCommand

	depth int

	exitMu        sync.Mutex
	exitRequested bool
	exitCode      int
}

// NewExecutor creates a new executor
func NewExecutor(logger *Logger) *Executor {
	return &Executor{
		commands:   make(map[string]Handler),
		logger:     logger,
		parseCache: make(map[string][]*ParsedCommand),
	}
}

// RegisterCommand registers a command handler
func (e *Executor) RegisterCommand(name string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands[name] = handler
	e.logger.DebugCat(CatCommand, "Registered command: %s", name)
}

// UnregisterCommand removes a command
func (e *Executor) UnregisterCommand(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.commands[name]; !ok {
		return false
	}
	delete(e.commands, name)
	e.logger.DebugCat(CatCommand, "Unregistered command: %s", name)
	return true
}

// GetCommand looks up a registered command
func (e *Executor) GetCommand(name string) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.commands[name]
	return h, ok
}

// SetFallbackHandler sets a handler for unknown commands. It returns nil
// when it does not handle the command either.
func (e *Executor) SetFallbackHandler(handler func(*Context) Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallbackHandler = handler
}

// RequestExit records that the script asked to exit.
func (e *Executor) RequestExit(code int) {
	e.exitMu.Lock()
	e.exitRequested = true
	e.exitCode = code
	e.exitMu.Unlock()
}

// ExitRequested reports whether exit was called and with which code.
func (e *Executor) ExitRequested() (bool, int) {
	e.exitMu.Lock()
	defer e.exitMu.Unlock()
	return e.exitRequested, e.exitCode
}

// Parse parses script, reusing earlier parses of the same text
func (e *Executor) Parse(script, filename string) ([]*ParsedCommand, error) {
	e.cacheMu.Lock()
	cmds, ok := e.parseCache[script]
	e.cacheMu.Unlock()
	if ok {
		return cmds, nil
	}
	cmds, err := NewParser(script, filename).ParseCommandSequence()
	if err != nil {
		return nil, err
	}
	e.cacheMu.Lock()
	if len(e.parseCache) > 4096 {
		e.parseCache = make(map[string][]*ParsedCommand)
	}
	e.parseCache[script] = cmds
	e.cacheMu.Unlock()
	return cmds, nil
}

// ExecuteWithState parses and runs script in state
func (e *Executor) ExecuteWithState(script string, state *ExecutionState, filename string) Result {
	cmds, err := e.Parse(script, filename)
	if err != nil {
		var syn *SyntaxError
		if errors.As(err, &syn) {
			e.logger.ParseError(syn.Message, syn.Position)
		}
		state.SetResult(NewValue(err.Error()))
		state.SetErrorCode("PARSE")
		state.addErrorInfo(strings.TrimSpace(script))
		return BoolStatus(false)
	}
	return e.ExecuteParsedCommands(cmds, state)
}

// ExecuteParsedCommands runs a command sequence honouring ; & and |
func (e *Executor) ExecuteParsedCommands(cmds []*ParsedCommand, state *ExecutionState) Result {
	status := true
	for i, cmd := range cmds {
		if i > 0 {
			switch cmds[i-1].Sep {
			case SepAnd:
				if !status {
					continue
				}
			case SepOr:
				if status {
					continue
				}
				// the failure is handled here
				state.resetError()
			default:
				if !status {
					return BoolStatus(false)
				}
			}
		}
		res := e.executeCommand(cmd, state)
		switch r := res.(type) {
		case EarlyReturn, ExitResult:
			return r
		}
		status = IsSuccess(res)
		state.SetLastStatus(status)
	}
	return BoolStatus(status)
}

func (e *Executor) executeCommand(cmd *ParsedCommand, state *ExecutionState) Result {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxNestingDepth {
		state.SetResult(NewValue("too many nested evaluations (infinite loop?)"))
		state.SetErrorCode("NONE")
		state.addErrorInfo(cmd.Source)
		return BoolStatus(false)
	}

	args := make([]*Value, 0, len(cmd.Words))
	defer func() {
		for _, a := range args {
			a.Release()
		}
	}()
	for _, w := range cmd.Words {
		v, res := e.substituteWord(w, state)
		if res != nil {
			if !IsSuccess(res) {
				state.addErrorInfo(cmd.Source)
			}
			return res
		}
		args = append(args, v.Retain())
	}

	state.ClearResult()
	res := e.invoke(args, state, cmd.Position)
	if !IsSuccess(res) {
		state.addErrorInfo(cmd.Source)
	}
	return res
}

// invoke calls the command named by args[0] with the rest as arguments.
// The caller holds a reference on every argument for the whole call.
func (e *Executor) invoke(args []*Value, state *ExecutionState, pos *SourcePosition) Result {
	name := args[0].String()
	if pos != nil && state.MacroName() != "" {
		p := *pos
		p.MacroName = state.MacroName()
		pos = &p
	}
	ctx := &Context{
		Args:     args[1:],
		Name:     name,
		Position: pos,
		state:    state,
		executor: e,
		logger:   e.logger,
	}
	e.logger.TraceCat(CatCommand, "invoke %s (%d args)", name, len(ctx.Args))

	if handler, ok := e.GetCommand(name); ok {
		return normalize(handler(ctx))
	}
	e.mu.RLock()
	fallback := e.fallbackHandler
	e.mu.RUnlock()
	if fallback != nil {
		if res := fallback(ctx); res != nil {
			return res
		}
	}
	e.logger.DebugCat(CatCommand, "Unknown command: %s", name)
	return ctx.Errorf("invalid command name \"%s\"", name)
}

func normalize(r Result) Result {
	if r == nil {
		return BoolStatus(true)
	}
	return r
}

// substituteWord produces the value of one word. A word that is exactly one
// substitution yields the substituted value itself rather than a copy.
// A non-nil Result means substitution did not complete.
func (e *Executor) substituteWord(w *Word, state *ExecutionState) (*Value, Result) {
	if len(w.Parts) == 1 {
		return e.substitutePart(w.Parts[0], state)
	}
	var b strings.Builder
	for _, p := range w.Parts {
		v, res := e.substitutePart(p, state)
		if res != nil {
			return nil, res
		}
		b.WriteString(v.String())
	}
	return NewValue(b.String()), nil
}

func (e *Executor) substitutePart(p WordPart, state *ExecutionState) (*Value, Result) {
	switch p.Kind {
	case PartVariable:
		v, err := e.lookupVariable(p.Text, state)
		if err != nil {
			state.SetResult(NewValue(err.Error()))
			state.SetErrorCode("NONE")
			return nil, BoolStatus(false)
		}
		return v, nil
	case PartCommand:
		res := e.ExecuteWithState(p.Text, state, "")
		switch r := res.(type) {
		case ExitResult:
			return nil, r
		case EarlyReturn:
			if r.Value != nil {
				return r.Value, nil
			}
		default:
			if !IsSuccess(res) {
				return nil, res
			}
		}
		return state.GetResult(), nil
	}
	return NewValue(p.Text), nil
}

func (e *Executor) lookupVariable(name string, state *ExecutionState) (*Value, error) {
	switch name {
	case "*":
		return NewListValue(state.Args()...), nil
	case "#":
		return NewIntValue(int64(len(state.Args()))), nil
	}
	if n, err := strconv.Atoi(name); err == nil && n > 0 {
		args := state.Args()
		if n > len(args) {
			return NewValue(""), nil
		}
		return args[n-1], nil
	}
	v, ok := state.GetVariable(name)
	if !ok {
		e.logger.DebugCat(CatVariable, "read of unset variable %s", name)
		return nil, fmt.Errorf("can't read \"%s\": no such variable", name)
	}
	return v, nil
}

// Call invokes a command with already-built arguments, as if a script had
// named it. args[0] is the command name.
func (e *Executor) Call(state *ExecutionState, args ...*Value) Result {
	if len(args) == 0 {
		return BoolStatus(true)
	}
	for _, a := range args {
		a.Retain()
	}
	defer func() {
		for _, a := range args {
			a.Release()
		}
	}()
	state.ClearResult()
	res := e.invoke(args, state, nil)
	if !IsSuccess(res) {
		words := make([]string, len(args))
		for i, a := range args {
			words[i] = quoteListElement(a.String())
		}
		state.addErrorInfo(strings.Join(words, " "))
	}
	return res
}

// scriptError collects the error state left by a failed evaluation and
// ends the unwinding.
func (e *Executor) scriptError(state *ExecutionState) *ScriptError {
	err := &ScriptError{
		Message:   state.GetResult().String(),
		ErrorInfo: state.ErrorInfo(),
		ErrorCode: state.ErrorCode(),
	}
	state.resetError()
	return err
}
