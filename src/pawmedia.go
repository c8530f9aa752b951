package pawmedia

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// PawMedia is the script interpreter with its event loop
type PawMedia struct {
	config         *Config
	logger         *Logger
	executor       *Executor
	macroSystem    *MacroSystem
	state          *ExecutionState
	loop           *EventLoop
	bgErrorHandler BackgroundErrorHandler
	media          *mediaLibrary
}

// New creates a new interpreter with the standard library registered
func New(config *Config) *PawMedia {
	if config == nil {
		config = DefaultConfig()
	}

	logger := NewLogger(config.Debug)
	logger.SetOutput(config.Stdout, config.Stderr)
	for _, cat := range config.LogCategories {
		logger.EnableCategory(cat)
	}
	if config.Debug && len(config.LogCategories) == 0 {
		logger.EnableAllCategories()
	}

	executor := NewExecutor(logger)
	ps := &PawMedia{
		config:      config,
		logger:      logger,
		executor:    executor,
		macroSystem: NewMacroSystem(logger, executor),
		state:       NewExecutionState(),
		loop:        NewEventLoop(logger),
	}

	executor.SetFallbackHandler(func(ctx *Context) Result {
		if res := ps.macroSystem.ExecuteMacro(ctx); res != nil {
			return res
		}
		return nil
	})

	ps.RegisterStandardLibrary()
	return ps
}

// RegisterCommand registers a command handler
func (ps *PawMedia) RegisterCommand(name string, handler Handler) {
	ps.executor.RegisterCommand(name, handler)
}

// RegisterCommands registers multiple command handlers
func (ps *PawMedia) RegisterCommands(commands map[string]Handler) {
	for name, handler := range commands {
		ps.executor.RegisterCommand(name, handler)
	}
}

// DefineMacro defines a macro from Go
func (ps *PawMedia) DefineMacro(name, body string, params ...string) {
	ps.macroSystem.DefineMacro(name, params, body, nil)
}

// HasMacro checks if a macro exists
func (ps *PawMedia) HasMacro(name string) bool {
	return ps.macroSystem.HasMacro(name)
}

// ListMacros returns a list of all macro names
func (ps *PawMedia) ListMacros() []string {
	return ps.macroSystem.ListMacros()
}

// Execute executes a command string in the global frame
func (ps *PawMedia) Execute(commandString string) Result {
	return ps.ExecuteFile(commandString, "")
}

// ExecuteFile executes a script with filename tracking for error reports
func (ps *PawMedia) ExecuteFile(commandString, filename string) Result {
	res := ps.executor.ExecuteWithState(commandString, ps.state, filename)
	switch r := res.(type) {
	case ExitResult:
		ps.executor.RequestExit(r.Code)
	case EarlyReturn:
		if r.Value != nil {
			ps.state.SetResult(r.Value)
		}
		return BoolStatus(true)
	}
	if !IsSuccess(res) {
		ps.state.resetError()
	}
	return res
}

// Eval runs a script and returns its result, or a *ScriptError.
func (ps *PawMedia) Eval(script string) (*Value, error) {
	res := ps.executor.ExecuteWithState(script, ps.state, "")
	switch r := res.(type) {
	case ExitResult:
		ps.executor.RequestExit(r.Code)
	case EarlyReturn:
		if r.Value != nil {
			return r.Value, nil
		}
	}
	if !IsSuccess(res) {
		return nil, ps.executor.scriptError(ps.state)
	}
	return ps.state.GetResult(), nil
}

// Result returns the result of the last top-level command
func (ps *PawMedia) Result() *Value {
	return ps.state.GetResult()
}

// GetVariable reads a global variable
func (ps *PawMedia) GetVariable(name string) (*Value, bool) {
	return ps.state.GetVariable(name)
}

// SetVariable sets a global variable
func (ps *PawMedia) SetVariable(name string, v *Value) {
	ps.state.SetVariable(name, v)
}

// State returns the global execution state
func (ps *PawMedia) State() *ExecutionState { return ps.state }

// Logger returns the interpreter's logger
func (ps *PawMedia) Logger() *Logger { return ps.logger }

// Loop returns the event loop
func (ps *PawMedia) Loop() *EventLoop { return ps.loop }

// GetConfig returns a copy of the configuration
func (ps *PawMedia) GetConfig() *Config {
	configCopy := *ps.config
	return &configCopy
}

// ExitRequested reports whether a script called exit and with which code
func (ps *PawMedia) ExitRequested() (bool, int) {
	return ps.executor.ExitRequested()
}

// DoOneEvent runs one iteration of the event loop
func (ps *PawMedia) DoOneEvent(flags EventFlags) bool {
	return ps.loop.DoOneEvent(flags)
}

// Run services events until ctx is cancelled, the script exits or nothing
// is left that could produce an event.
func (ps *PawMedia) Run(ctx context.Context) error {
	return ps.loop.Run(ctx, func() bool {
		exited, _ := ps.executor.ExitRequested()
		return exited
	})
}

// Close tears down the media library, if registered, and drops all state.
func (ps *PawMedia) Close() error {
	var err error
	if ps.media != nil {
		err = ps.media.close()
		ps.media = nil
	}
	ps.state.ReleaseAll()
	return err
}

// echo writes a line to the configured stdout
func (ps *PawMedia) echo(args []*Value) error {
	out := ps.config.Stdout
	if out == nil {
		out = os.Stdout
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	_, err := fmt.Fprintln(out, strings.Join(parts, " "))
	return err
}
