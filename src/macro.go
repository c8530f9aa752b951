package pawmedia

import (
	"fmt"
	"sort"
	"sync"
)

// StoredMacro is a macro body with its parameter names
type StoredMacro struct {
	Params   []string
	Body     string
	Position *SourcePosition
}

// MacroSystem manages macro definitions and execution
type MacroSystem struct {
	mu       sync.RWMutex
	macros   map[string]*StoredMacro
	executor *Executor
	logger   *Logger
}

// NewMacroSystem creates a new macro system
func NewMacroSystem(logger *Logger, executor *Executor) *MacroSystem {
	return &MacroSystem{
		macros:   make(map[string]*StoredMacro),
		executor: executor,
		logger:   logger,
	}
}

// DefineMacro defines or replaces a macro
func (ms *MacroSystem) DefineMacro(name string, params []string, body string, position *SourcePosition) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.macros[name]; exists {
		ms.logger.DebugCat(CatMacro, "Replacing existing macro \"%s\"", name)
	}
	ms.macros[name] = &StoredMacro{Params: params, Body: body, Position: position}
	ms.logger.DebugCat(CatMacro, "Defined macro \"%s\"", name)
}

// HasMacro checks if a macro exists
func (ms *MacroSystem) HasMacro(name string) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.macros[name]
	return ok
}

// GetMacro returns a macro definition
func (ms *MacroSystem) GetMacro(name string) (*StoredMacro, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.macros[name]
	return m, ok
}

// DeleteMacro removes a macro
func (ms *MacroSystem) DeleteMacro(name string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.macros[name]; !ok {
		return false
	}
	delete(ms.macros, name)
	return true
}

// ListMacros returns the sorted macro names
func (ms *MacroSystem) ListMacros() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	names := make([]string, 0, len(ms.macros))
	for name := range ms.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteMacro runs the macro ctx names in a fresh local frame. It returns
// nil when no such macro exists.
func (ms *MacroSystem) ExecuteMacro(ctx *Context) Result {
	macro, ok := ms.GetMacro(ctx.Name)
	if !ok {
		return nil
	}

	frame := NewMacroFrame(ctx.state, ctx.Name, ctx.Args)
	defer frame.ReleaseAll()
	for i, p := range macro.Params {
		v := NewValue("")
		if i < len(ctx.Args) {
			v = ctx.Args[i]
		}
		frame.SetVariable(p, v)
	}

	filename := ""
	if macro.Position != nil {
		filename = macro.Position.Filename
	}
	res := ms.executor.ExecuteWithState(macro.Body, frame, filename)
	switch r := res.(type) {
	case EarlyReturn:
		if r.Value != nil {
			ctx.SetResult(r.Value)
		} else {
			ctx.SetResult(frame.GetResult())
		}
		return BoolStatus(true)
	case ExitResult:
		return r
	}
	ctx.SetResult(frame.GetResult())
	if !IsSuccess(res) {
		frame.AppendErrorInfo(fmt.Sprintf("\n    (macro \"%s\")", ctx.Name))
		return BoolStatus(false)
	}
	return BoolStatus(true)
}
