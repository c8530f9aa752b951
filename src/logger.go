package pawmedia

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message (higher value = higher severity)
type LogLevel int

const (
	LevelTrace  LogLevel = iota // Detailed tracing (requires enabled + category)
	LevelInfo                   // Informational messages (requires enabled + category)
	LevelDebug                  // Development debugging (requires enabled + category)
	LevelNotice                 // Notable events (always shown)
	LevelWarn                   // Warnings (always shown)
	LevelError                  // Runtime errors (always shown)
	LevelFatal                  // Parse/unknown command errors (always shown)
)

// LogCategory represents the subsystem generating the message
type LogCategory string

const (
	CatNone     LogCategory = ""         // Uncategorized
	CatParse    LogCategory = "parse"    // Parser errors
	CatCommand  LogCategory = "command"  // Command execution
	CatVariable LogCategory = "variable" // Variable operations (get/set)
	CatArgument LogCategory = "argument" // Argument validation
	CatMacro    LogCategory = "macro"    // Macro operations
	CatValue    LogCategory = "value"    // Cached colour/rect representations
	CatVideo    LogCategory = "video"    // Surfaces and the display
	CatAudio    LogCategory = "audio"    // Mixer
	CatEvent    LogCategory = "event"    // Native event delivery
	CatAsync    LogCategory = "async"    // Timers and background errors
	CatSystem   LogCategory = "system"   // Startup, config, shutdown
	CatUser     LogCategory = "user"     // User generated/custom
)

var allCategories = []LogCategory{
	CatParse, CatCommand, CatVariable, CatArgument, CatMacro, CatValue,
	CatVideo, CatAudio, CatEvent, CatAsync, CatSystem, CatUser,
}

// ParseLogCategory looks a category up by name
func ParseLogCategory(name string) (LogCategory, bool) {
	for _, cat := range allCategories {
		if string(cat) == name {
			return cat, true
		}
	}
	return CatNone, false
}

// ANSI color codes for terminal output
const (
	colorYellow = "\x1b[93m" // Bright yellow foreground
	colorReset  = "\x1b[0m"  // Reset to default
)

// Logger handles logging for the interpreter and its media libraries
type Logger struct {
	mu                sync.Mutex
	enabled           bool
	enabledCategories map[LogCategory]bool
	out               io.Writer
	errOut            io.Writer
	// colorEnabled is true if terminal colors should be used for stderr output
	colorEnabled bool
}

// stderrSupportsColor checks if stderr is a terminal that supports color output
func stderrSupportsColor() bool {
	stderrInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	// ModeCharDevice indicates a terminal
	if (stderrInfo.Mode() & os.ModeCharDevice) == 0 {
		return false
	}

	// Respect NO_COLOR environment variable (https://no-color.org/)
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}

	if term := os.Getenv("TERM"); term == "dumb" {
		return false
	}

	return true
}

// NewLogger creates a new logger writing to stdout and stderr
func NewLogger(enabled bool) *Logger {
	return &Logger{
		enabled:           enabled,
		enabledCategories: make(map[LogCategory]bool),
		out:               os.Stdout,
		errOut:            os.Stderr,
		colorEnabled:      stderrSupportsColor(),
	}
}

// SetOutput redirects low severity output to out and the rest to errOut.
// Colour is turned off unless errOut is the process's stderr.
func (l *Logger) SetOutput(out, errOut io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if out != nil {
		l.out = out
	}
	if errOut != nil {
		l.errOut = errOut
		l.colorEnabled = errOut == os.Stderr && stderrSupportsColor()
	}
}

func (l *Logger) writeOutput(isDebug bool, output string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if isDebug {
		_, _ = fmt.Fprintln(l.out, output)
		return
	}
	if l.colorEnabled {
		_, _ = fmt.Fprintf(l.errOut, "%s%s%s\n", colorYellow, output, colorReset)
	} else {
		_, _ = fmt.Fprintln(l.errOut, output)
	}
}

// SetEnabled enables or disables debug logging
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()
}

// EnableCategory enables debug logging for a specific category
func (l *Logger) EnableCategory(cat LogCategory) {
	l.mu.Lock()
	l.enabledCategories[cat] = true
	l.mu.Unlock()
}

// DisableCategory disables debug logging for a specific category
func (l *Logger) DisableCategory(cat LogCategory) {
	l.mu.Lock()
	delete(l.enabledCategories, cat)
	l.mu.Unlock()
}

// EnableAllCategories enables all categories for debug logging
func (l *Logger) EnableAllCategories() {
	l.mu.Lock()
	for _, cat := range allCategories {
		l.enabledCategories[cat] = true
	}
	l.mu.Unlock()
}

// IsCategoryEnabled checks if a category is enabled
func (l *Logger) IsCategoryEnabled(cat LogCategory) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabledCategories[cat]
}

// shouldLog determines if a message should be logged based on level and category
func (l *Logger) shouldLog(level LogLevel, cat LogCategory) bool {
	switch level {
	case LevelFatal, LevelError, LevelWarn, LevelNotice:
		return true // Always shown
	case LevelDebug, LevelInfo, LevelTrace:
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.enabled && (cat == CatNone || l.enabledCategories[cat])
	default:
		return false
	}
}

// Log is the unified logging method
func (l *Logger) Log(level LogLevel, cat LogCategory, message string, position *SourcePosition) {
	if !l.shouldLog(level, cat) {
		return
	}

	catSuffix := ""
	if cat != CatNone {
		catSuffix = ":" + string(cat)
	}

	var prefix string
	switch level {
	case LevelTrace:
		prefix = fmt.Sprintf("[TRACE%s]", catSuffix)
	case LevelInfo:
		prefix = fmt.Sprintf("[INFO%s]", catSuffix)
	case LevelDebug:
		prefix = fmt.Sprintf("[DEBUG%s]", catSuffix)
	case LevelNotice:
		prefix = fmt.Sprintf("[PawMedia%s NOTICE]", catSuffix)
	case LevelWarn:
		prefix = fmt.Sprintf("[PawMedia%s WARN]", catSuffix)
	case LevelError, LevelFatal:
		prefix = fmt.Sprintf("[PawMedia%s ERROR]", catSuffix)
	}

	output := prefix + " " + message
	if position != nil {
		filename := position.Filename
		if filename == "" {
			filename = "<unknown>"
		}
		output += fmt.Sprintf("\n  at line %d, column %d in %s", position.Line, position.Column, filename)
		if position.MacroName != "" {
			output += fmt.Sprintf("\n  inside macro \"%s\"", position.MacroName)
		}
	}

	// Trace, Info, Debug go to stdout; Notice, Warn, Error, Fatal go to stderr
	isLowSeverity := level == LevelTrace || level == LevelInfo || level == LevelDebug
	l.writeOutput(isLowSeverity, output)
}

// Fatal logs a fatal error message
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.Log(LevelFatal, CatNone, fmt.Sprintf(format, args...), nil)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LevelError, CatNone, fmt.Sprintf(format, args...), nil)
}

// ErrorCat logs a categorized error message
func (l *Logger) ErrorCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelError, cat, fmt.Sprintf(format, args...), nil)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Log(LevelWarn, CatNone, fmt.Sprintf(format, args...), nil)
}

// WarnCat logs a categorized warning message
func (l *Logger) WarnCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelWarn, cat, fmt.Sprintf(format, args...), nil)
}

// NoticeCat logs a categorized notice message
func (l *Logger) NoticeCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelNotice, cat, fmt.Sprintf(format, args...), nil)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LevelDebug, CatNone, fmt.Sprintf(format, args...), nil)
}

// DebugCat logs a categorized debug message
func (l *Logger) DebugCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelDebug, cat, fmt.Sprintf(format, args...), nil)
}

// InfoCat logs a categorized informational message
func (l *Logger) InfoCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelInfo, cat, fmt.Sprintf(format, args...), nil)
}

// TraceCat logs a categorized trace message
func (l *Logger) TraceCat(cat LogCategory, format string, args ...interface{}) {
	l.Log(LevelTrace, cat, fmt.Sprintf(format, args...), nil)
}

// ParseError logs a parse error (always visible)
func (l *Logger) ParseError(message string, position *SourcePosition) {
	l.Log(LevelFatal, CatParse, "Parse error: "+message, position)
}

// UnknownCommandError logs an unknown command error (always visible)
func (l *Logger) UnknownCommandError(commandName string, position *SourcePosition) {
	l.Log(LevelFatal, CatCommand, "Unknown command: "+commandName, position)
}

// CommandError logs a command execution error with category
func (l *Logger) CommandError(cat LogCategory, cmdName, message string, position *SourcePosition) {
	fullMessage := message
	if cmdName != "" {
		fullMessage = fmt.Sprintf("%s: %s", strings.ToUpper(cmdName), message)
	}
	l.Log(LevelError, cat, fullMessage, position)
}

// CommandWarning logs a command warning with category
func (l *Logger) CommandWarning(cat LogCategory, cmdName, message string, position *SourcePosition) {
	fullMessage := message
	if cmdName != "" {
		fullMessage = fmt.Sprintf("%s: %s", strings.ToUpper(cmdName), message)
	}
	l.Log(LevelWarn, cat, fullMessage, position)
}

// Slog returns a *slog.Logger that writes through this logger under cat.
// The media helper packages log through it.
func (l *Logger) Slog(cat LogCategory) *slog.Logger {
	return slog.New(&slogBridge{logger: l, cat: cat})
}

type slogBridge struct {
	logger *Logger
	cat    LogCategory
	attrs  []slog.Attr
}

func slogLevel(level slog.Level) LogLevel {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func (h *slogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.shouldLog(slogLevel(level), h.cat)
}

func (h *slogBridge) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	h.logger.Log(slogLevel(r.Level), h.cat, b.String(), nil)
	return nil
}

func (h *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &slogBridge{logger: h.logger, cat: h.cat, attrs: merged}
}

func (h *slogBridge) WithGroup(string) slog.Handler { return h }
