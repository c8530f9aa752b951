package pawmedia

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
)

// SourcePosition tracks the position of code in source files
type SourcePosition struct {
	Line      int
	Column    int
	Filename  string
	MacroName string
}

// Context is passed to command handlers
type Context struct {
	Args     []*Value
	Name     string
	Position *SourcePosition
	state    *ExecutionState
	executor *Executor
	logger   *Logger
}

// SetResult sets the formal result value
func (c *Context) SetResult(v *Value) {
	c.state.SetResult(v)
}

// SetResultString sets a string result
func (c *Context) SetResultString(s string) {
	c.state.SetResult(NewValue(s))
}

// GetResult gets the current result value
func (c *Context) GetResult() *Value {
	return c.state.GetResult()
}

// State returns the execution state the command runs in.
func (c *Context) State() *ExecutionState {
	return c.state
}

// Executor returns the executor running the command.
func (c *Context) Executor() *Executor {
	return c.executor
}

// Error records err as the command's error message and error code and
// returns a failing status. Handlers end with `return ctx.Error(err)`.
func (c *Context) Error(err error) Result {
	code := "NONE"
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		code = coded.ErrorCode()
	}
	c.state.SetResult(NewValue(err.Error()))
	c.state.SetErrorCode(code)
	c.logger.DebugCat(CatCommand, "%s failed: %v", c.Name, err)
	return BoolStatus(false)
}

// Errorf is Error with formatting.
func (c *Context) Errorf(format string, args ...interface{}) Result {
	return c.Error(fmt.Errorf(format, args...))
}

// WrongArgs fails with the usual "wrong # args" message.
func (c *Context) WrongArgs(usage string) Result {
	msg := fmt.Sprintf("wrong # args: should be \"%s\"", strings.TrimSpace(c.Name+" "+usage))
	return c.Error(errors.New(msg))
}

// Handler is the signature of every command implementation
type Handler func(*Context) Result

// Result is the outcome of a command
type Result interface {
	isResult()
}

// BoolStatus reports success (true) or failure (false)
type BoolStatus bool

func (BoolStatus) isResult() {}

// EarlyReturn unwinds to the enclosing macro call with a value
type EarlyReturn struct {
	Value *Value
}

func (EarlyReturn) isResult() {}

// ExitResult unwinds everything and stops the event loop
type ExitResult struct {
	Code int
}

func (ExitResult) isResult() {}

// IsSuccess reports whether r counts as a successful outcome.
func IsSuccess(r Result) bool {
	switch v := r.(type) {
	case BoolStatus:
		return bool(v)
	case EarlyReturn, ExitResult:
		return true
	}
	return r == nil
}

// Config holds configuration for the interpreter and its media libraries
type Config struct {
	Debug         bool
	LogCategories []LogCategory
	// Backend is "auto", "tcell" or "headless". Auto picks tcell when
	// stdout is a terminal.
	Backend string
	// Screen, when set, is used by the tcell backend instead of a new
	// terminal screen.
	Screen tcell.Screen
	// PollInterval is the longest the event loop sleeps while the native
	// event queue is empty.
	PollInterval   time.Duration
	EventQueueSize int
	// LegacyPixelQuirks reproduces the historical pixel access behaviour
	// for scripts that depend on it.
	LegacyPixelQuirks bool
	// AudioDevice is "speaker" or "none".
	AudioDevice     string
	AudioSampleRate int
	AudioBufferSize int
	Stdout          io.Writer
	Stderr          io.Writer
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Debug:           false,
		Backend:         "auto",
		PollInterval:    10 * time.Millisecond,
		EventQueueSize:  128,
		AudioDevice:     "speaker",
		AudioSampleRate: 44100,
		AudioBufferSize: 4096,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	}
}

// ScriptError is a failure that escaped to the top level of an evaluation
type ScriptError struct {
	Message   string
	ErrorInfo string
	ErrorCode string
}

func (e *ScriptError) Error() string {
	return e.Message
}
