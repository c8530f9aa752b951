package pawmedia

import (
	"fmt"
	"strings"
	"sync"
)

const (
	varErrorInfo = "errorInfo"
	varErrorCode = "errorCode"
)

// ExecutionState manages the result state and variables during command execution
type ExecutionState struct {
	mu         sync.RWMutex
	result     *Value
	hasResult  bool
	lastStatus bool // Tracks the status (success/failure) of the last command
	variables  map[string]*Value
	// global is the interpreter-wide frame; nil when this state is the global frame
	global    *ExecutionState
	macroName string
	args      []*Value
	// errorInProgress is set while errorInfo is being built up during unwinding
	errorInProgress bool
	// codeSet is true once the failing command has supplied an errorCode
	codeSet bool
}

// NewExecutionState creates a new global execution state
func NewExecutionState() *ExecutionState {
	return &ExecutionState{
		lastStatus: true,
		variables:  make(map[string]*Value),
	}
}

// NewMacroFrame creates a local frame for one macro invocation. Variable
// reads fall back to the global frame; writes stay local unless the name
// starts with "::".
func NewMacroFrame(parent *ExecutionState, macroName string, args []*Value) *ExecutionState {
	root := parent.Global()
	return &ExecutionState{
		lastStatus: true,
		variables:  make(map[string]*Value),
		global:     root,
		macroName:  macroName,
		args:       args,
	}
}

// Global returns the global frame this state belongs to.
func (s *ExecutionState) Global() *ExecutionState {
	if s.global != nil {
		return s.global
	}
	return s
}

// MacroName returns the macro this frame runs, or "" for the global frame.
func (s *ExecutionState) MacroName() string { return s.macroName }

// Args returns the arguments of the macro this frame runs.
func (s *ExecutionState) Args() []*Value { return s.args }

// SetResult replaces the result, holding a reference to v
func (s *ExecutionState) SetResult(v *Value) {
	s.mu.Lock()
	old := s.result
	if v != nil {
		v.Retain()
	}
	s.result = v
	s.hasResult = v != nil
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}
}

// GetResult returns the current result, never nil
func (s *ExecutionState) GetResult() *Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return NewValue("")
	}
	return s.result
}

// HasResult reports whether a command left a result
func (s *ExecutionState) HasResult() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasResult
}

// ClearResult drops the result
func (s *ExecutionState) ClearResult() {
	s.SetResult(nil)
}

func (s *ExecutionState) GetLastStatus() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStatus
}

func (s *ExecutionState) SetLastStatus(status bool) {
	s.mu.Lock()
	s.lastStatus = status
	s.mu.Unlock()
}

// resolve picks the frame that owns name and strips a leading "::".
func (s *ExecutionState) resolve(name string) (*ExecutionState, string) {
	if strings.HasPrefix(name, "::") {
		return s.Global(), name[2:]
	}
	return s, name
}

// SetVariable stores v under name, holding a reference to it
func (s *ExecutionState) SetVariable(name string, v *Value) {
	frame, name := s.resolve(name)
	v.Retain()
	frame.mu.Lock()
	old := frame.variables[name]
	frame.variables[name] = v
	frame.mu.Unlock()
	if old != nil && old != v {
		old.Release()
	} else if old == v {
		v.Release()
	}
}

// GetVariable looks name up in this frame and then in the global frame
func (s *ExecutionState) GetVariable(name string) (*Value, bool) {
	frame, name := s.resolve(name)
	frame.mu.RLock()
	v, ok := frame.variables[name]
	frame.mu.RUnlock()
	if ok || frame.global == nil {
		return v, ok
	}
	return frame.global.GetVariable(name)
}

// HasLocalVariable reports whether name is set in this frame itself
func (s *ExecutionState) HasLocalVariable(name string) bool {
	frame, name := s.resolve(name)
	frame.mu.RLock()
	defer frame.mu.RUnlock()
	_, ok := frame.variables[name]
	return ok
}

// DeleteVariable removes name from the frame that owns it
func (s *ExecutionState) DeleteVariable(name string) bool {
	frame, name := s.resolve(name)
	frame.mu.Lock()
	v, ok := frame.variables[name]
	delete(frame.variables, name)
	frame.mu.Unlock()
	if ok {
		v.Release()
		return true
	}
	if frame.global != nil {
		return frame.global.DeleteVariable(name)
	}
	return false
}

// ReleaseAll drops every variable and the result. Macro frames call it on exit.
func (s *ExecutionState) ReleaseAll() {
	s.mu.Lock()
	vars := s.variables
	s.variables = make(map[string]*Value)
	s.mu.Unlock()
	for _, v := range vars {
		v.Release()
	}
	s.ClearResult()
}

// SetErrorCode sets the global errorCode variable
func (s *ExecutionState) SetErrorCode(code string) {
	g := s.Global()
	g.SetVariable(varErrorCode, NewValue(code))
	g.mu.Lock()
	g.codeSet = true
	g.mu.Unlock()
}

// ErrorCode returns the global errorCode variable
func (s *ExecutionState) ErrorCode() string {
	v, _ := s.Global().GetVariable(varErrorCode)
	return v.String()
}

// ErrorInfo returns the global errorInfo variable
func (s *ExecutionState) ErrorInfo() string {
	v, _ := s.Global().GetVariable(varErrorInfo)
	return v.String()
}

// addErrorInfo starts or extends the errorInfo trace for the failing
// command cmd.
func (s *ExecutionState) addErrorInfo(cmd string) {
	g := s.Global()
	g.mu.Lock()
	inProgress := g.errorInProgress
	g.errorInProgress = true
	g.mu.Unlock()

	if len(cmd) > 150 {
		cmd = cmd[:150] + "..."
	}
	if !inProgress {
		msg := s.GetResult().String()
		g.SetVariable(varErrorInfo, NewValue(fmt.Sprintf("%s\n    while executing\n\"%s\"", msg, cmd)))
		g.mu.RLock()
		codeSet := g.codeSet
		g.mu.RUnlock()
		if !codeSet {
			g.SetVariable(varErrorCode, NewValue("NONE"))
		}
		return
	}
	g.SetVariable(varErrorInfo, NewValue(fmt.Sprintf("%s\n    invoked from within\n\"%s\"", g.ErrorInfo(), cmd)))
}

// AppendErrorInfo adds text to the end of errorInfo.
func (s *ExecutionState) AppendErrorInfo(text string) {
	g := s.Global()
	g.SetVariable(varErrorInfo, NewValue(g.ErrorInfo()+text))
}

// resetError marks the end of an unwinding error so the next failure
// starts a fresh trace.
func (s *ExecutionState) resetError() {
	g := s.Global()
	g.mu.Lock()
	g.errorInProgress = false
	g.codeSet = false
	g.mu.Unlock()
}

// StateSnapshot holds the parts of the interpreter state that a
// background evaluation must leave untouched.
type StateSnapshot struct {
	result          *Value
	errorInfo       *Value
	errorCode       *Value
	errorInProgress bool
	codeSet         bool
}

// Snapshot captures the result and the error variables. The snapshot
// holds references until Restore is called.
func (s *ExecutionState) Snapshot() *StateSnapshot {
	g := s.Global()
	snap := &StateSnapshot{}
	s.mu.RLock()
	if s.result != nil {
		snap.result = s.result.Retain()
	}
	s.mu.RUnlock()
	if v, ok := g.GetVariable(varErrorInfo); ok {
		snap.errorInfo = v.Retain()
	}
	if v, ok := g.GetVariable(varErrorCode); ok {
		snap.errorCode = v.Retain()
	}
	g.mu.RLock()
	snap.errorInProgress = g.errorInProgress
	snap.codeSet = g.codeSet
	g.mu.RUnlock()
	return snap
}

// Restore puts back what Snapshot captured and releases its references.
func (s *ExecutionState) Restore(snap *StateSnapshot) {
	g := s.Global()
	s.SetResult(snap.result)
	restoreVar := func(name string, v *Value) {
		if v == nil {
			g.DeleteVariable(name)
			return
		}
		g.SetVariable(name, v)
		v.Release()
	}
	restoreVar(varErrorInfo, snap.errorInfo)
	restoreVar(varErrorCode, snap.errorCode)
	if snap.result != nil {
		snap.result.Release()
	}
	g.mu.Lock()
	g.errorInProgress = snap.errorInProgress
	g.codeSet = snap.codeSet
	g.mu.Unlock()
}

// String returns a human-readable representation of the state
func (s *ExecutionState) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	frame := "global"
	if s.macroName != "" {
		frame = "macro " + s.macroName
	}
	return fmt.Sprintf("ExecutionState{%s, vars: %d, status: %v}", frame, len(s.variables), s.lastStatus)
}
