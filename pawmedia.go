// Package pawmedia is an embeddable command interpreter with a drawing
// surface library and an audio mixer exposed as media:: commands.
//
// This package re-exports the public API from the implementation in src/.
// For full documentation, see the implementation package.
//
// Basic usage:
//
//	ps := pawmedia.New(pawmedia.DefaultConfig())
//	defer ps.Close()
//	if err := ps.RegisterMediaLibrary(); err != nil {
//		log.Fatal(err)
//	}
//	ps.Execute(`media::surface -width 320 -height 200`)
//	ps.Run(context.Background())
package pawmedia

import (
	impl "github.com/phroun/pawmedia/src"
)

// =============================================================================
// CORE TYPES
// =============================================================================

// PawMedia is the main interpreter instance.
type PawMedia = impl.PawMedia

// Config holds configuration options for the interpreter.
type Config = impl.Config

// Context is passed to command handlers during execution.
type Context = impl.Context

// Result is the interface returned by command handlers.
type Result = impl.Result

// Handler is the function signature for command handlers.
type Handler = impl.Handler

// Value is a script value with its cached colour or rect form.
type Value = impl.Value

// =============================================================================
// RESULT TYPES
// =============================================================================

// BoolStatus is a boolean result from command execution.
type BoolStatus = impl.BoolStatus

// EarlyReturn signals early termination from a macro.
type EarlyReturn = impl.EarlyReturn

// ExitResult signals that the script called exit.
type ExitResult = impl.ExitResult

// ScriptError is an error that reached the top of an evaluation.
type ScriptError = impl.ScriptError

// =============================================================================
// EXECUTION STATE
// =============================================================================

// ExecutionState manages result state and variables during execution.
type ExecutionState = impl.ExecutionState

// SourcePosition tracks location in source code for error reporting.
type SourcePosition = impl.SourcePosition

// =============================================================================
// EVENTS
// =============================================================================

// EventLoop is the cooperative scheduler.
type EventLoop = impl.EventLoop

// EventFlags select what one loop iteration handles.
type EventFlags = impl.EventFlags

// EventSource plugs a foreign event queue into the loop.
type EventSource = impl.EventSource

// EventBridge delivers native events to media::on_event.
type EventBridge = impl.EventBridge

// BackgroundErrorHandler receives errors from event handlers and timers.
type BackgroundErrorHandler = impl.BackgroundErrorHandler

const (
	WindowEvents = impl.WindowEvents
	TimerEvents  = impl.TimerEvents
	DontWait     = impl.DontWait
	AllEvents    = impl.AllEvents
)

// =============================================================================
// MEDIA VALUES
// =============================================================================

// Color is the native form of a colour value.
type Color = impl.Color

// Rect is the native form of a rect value.
type Rect = impl.Rect

// PixelAccessor reads and writes pixels of one surface.
type PixelAccessor = impl.PixelAccessor

var (
	ErrInvalidColor      = impl.ErrInvalidColor
	ErrInvalidRect       = impl.ErrInvalidRect
	ErrUnsupportedFormat = impl.ErrUnsupportedFormat
	ErrInvalidColorArity = impl.ErrInvalidColorArity
	ErrOutOfBounds       = impl.ErrOutOfBounds
	ErrBufferTooSmall    = impl.ErrBufferTooSmall
	ErrPayloadClaimed    = impl.ErrPayloadClaimed
)

// =============================================================================
// LOGGING
// =============================================================================

// Logger is the levelled, categorised logger.
type Logger = impl.Logger

// LogCategory names the subsystem a message comes from.
type LogCategory = impl.LogCategory

const (
	CatParse    = impl.CatParse
	CatCommand  = impl.CatCommand
	CatVariable = impl.CatVariable
	CatArgument = impl.CatArgument
	CatMacro    = impl.CatMacro
	CatValue    = impl.CatValue
	CatVideo    = impl.CatVideo
	CatAudio    = impl.CatAudio
	CatEvent    = impl.CatEvent
	CatAsync    = impl.CatAsync
	CatSystem   = impl.CatSystem
	CatUser     = impl.CatUser
)

// =============================================================================
// CONSTRUCTORS AND HELPERS
// =============================================================================

// Version of the media commands.
const Version = impl.Version

// EventHandlerName is the command native events are delivered to.
const EventHandlerName = impl.EventHandlerName

// New creates a new interpreter with the standard library registered.
func New(config *Config) *PawMedia {
	return impl.New(config)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return impl.DefaultConfig()
}

// LoadConfigFile returns the defaults overlaid with a TOML config file.
func LoadConfigFile(path string) (*Config, error) {
	return impl.LoadConfigFile(path)
}

// DefaultConfigPath returns ~/.paw/pawmedia.toml.
func DefaultConfigPath() string {
	return impl.DefaultConfigPath()
}

// NewValue creates a string value.
func NewValue(s string) *Value {
	return impl.NewValue(s)
}

// AsColor returns the colour form of v.
func AsColor(v *Value) (Color, error) {
	return impl.AsColor(v)
}

// AsRect returns the rect form of v.
func AsRect(v *Value) (Rect, error) {
	return impl.AsRect(v)
}
