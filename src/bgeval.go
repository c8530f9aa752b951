package pawmedia

import (
	"errors"
)

// CallPreserving invokes a command with the given words and then puts the
// result and the errorInfo/errorCode variables back the way they were,
// whatever the outcome. A failure is returned as a *ScriptError.
func (e *Executor) CallPreserving(state *ExecutionState, args ...*Value) error {
	snap := state.Snapshot()
	defer state.Restore(snap)
	return e.backgroundOutcome(state, e.Call(state, args...))
}

// EvalPreserving is CallPreserving for a script.
func (e *Executor) EvalPreserving(state *ExecutionState, script string) error {
	snap := state.Snapshot()
	defer state.Restore(snap)
	return e.backgroundOutcome(state, e.ExecuteWithState(script, state, ""))
}

func (e *Executor) backgroundOutcome(state *ExecutionState, res Result) error {
	if r, ok := res.(ExitResult); ok {
		e.RequestExit(r.Code)
		return nil
	}
	if IsSuccess(res) {
		return nil
	}
	return e.scriptError(state)
}

// BackgroundErrorHandler receives errors from code the event loop ran
type BackgroundErrorHandler func(err *ScriptError)

// SetBackgroundErrorHandler installs the handler used when no bgerror
// macro is defined.
func (ps *PawMedia) SetBackgroundErrorHandler(h BackgroundErrorHandler) {
	ps.bgErrorHandler = h
}

// CallPreserving runs a command on behalf of the event loop.
func (ps *PawMedia) CallPreserving(args ...*Value) error {
	return ps.executor.CallPreserving(ps.state, args...)
}

// BackgroundError reports an error from code that has no caller to
// receive it: the bgerror macro if defined, else the Go handler, else the
// log.
func (ps *PawMedia) BackgroundError(err error) {
	var se *ScriptError
	if !errors.As(err, &se) {
		se = &ScriptError{Message: err.Error(), ErrorInfo: err.Error(), ErrorCode: "NONE"}
	}

	if ps.macroSystem.HasMacro("bgerror") {
		if ps.callBgerror(se) {
			return
		}
	}
	if h := ps.bgErrorHandler; h != nil {
		h(se)
		return
	}
	ps.logger.ErrorCat(CatAsync, "%s", se.ErrorInfo)
}

func (ps *PawMedia) callBgerror(se *ScriptError) bool {
	state := ps.state
	snap := state.Snapshot()
	defer state.Restore(snap)

	g := state.Global()
	g.SetVariable(varErrorInfo, NewValue(se.ErrorInfo))
	g.SetVariable(varErrorCode, NewValue(se.ErrorCode))
	err := ps.executor.backgroundOutcome(state, ps.executor.Call(state, NewValue("bgerror"), NewValue(se.Message)))
	if err == nil {
		return true
	}
	ps.logger.ErrorCat(CatAsync, "error in bgerror: %v", err)
	return false
}
