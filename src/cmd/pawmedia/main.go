package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/phroun/pawmedia"
	"golang.org/x/term"
)

var version = "dev" // set via -ldflags at build time

// ANSI color codes for terminal output
const (
	colorYellow = "\x1b[93m" // Bright yellow foreground
	colorReset  = "\x1b[0m"  // Reset to default
)

// quitOnClose is installed as media::on_event unless the script defines
// its own, so closing the window or Ctrl-C ends the program.
const quitOnClose = `if {eq $1 Quit} {exit 0}`

// stderrSupportsColor checks if stderr is a terminal that supports color output
func stderrSupportsColor() bool {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return false
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// errorPrintf prints an error message to stderr, using color if supported
func errorPrintf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if stderrSupportsColor() {
		fmt.Fprintf(os.Stderr, "%s%s%s", colorYellow, message, colorReset)
	} else {
		fmt.Fprint(os.Stderr, message)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	debugFlag := flag.Bool("debug", false, "Enable debug output")
	flag.BoolVar(debugFlag, "d", false, "Enable debug output (short)")
	backendFlag := flag.String("backend", "", "Video backend: auto, tcell or headless")
	configFlag := flag.String("config", pawmedia.DefaultConfigPath(), "Config file")
	legacyFlag := flag.Bool("legacy-pixels", false, "Reproduce historical pixel access quirks")
	evalFlag := flag.String("e", "", "Execute script text instead of a file")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Usage = showUsage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("pawmedia %s (media %s)\n", version, pawmedia.Version)
		return 0
	}

	config, err := pawmedia.LoadConfigFile(*configFlag)
	if err != nil {
		errorPrintf("Error: %v\n", err)
		return 1
	}
	// Flags override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug", "d":
			config.Debug = *debugFlag
		case "backend":
			config.Backend = *backendFlag
		case "legacy-pixels":
			config.LegacyPixelQuirks = *legacyFlag
		}
	})

	scriptContent, scriptFile, err := readScript(*evalFlag, flag.Args())
	if err != nil {
		errorPrintf("Error: %v\n", err)
		return 1
	}

	ps := pawmedia.New(config)
	defer ps.Close()

	ps.DefineMacro(pawmedia.EventHandlerName, quitOnClose)
	if err := ps.RegisterMediaLibrary(); err != nil {
		errorPrintf("Error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result := ps.ExecuteFile(scriptContent, scriptFile)
	if exited, code := ps.ExitRequested(); exited {
		return code
	}
	if status, ok := result.(pawmedia.BoolStatus); ok && !bool(status) {
		return 1
	}

	if err := ps.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130 // Standard exit code for SIGINT
		}
		errorPrintf("Error: %v\n", err)
		return 1
	}
	_, code := ps.ExitRequested()
	return code
}

// readScript returns the script text and its file name ("" for -e or stdin)
func readScript(eval string, args []string) (string, string, error) {
	if eval != "" {
		return eval, "", nil
	}
	if len(args) > 0 {
		file := findScriptFile(args[0])
		if file == "" {
			return "", "", fmt.Errorf("script file not found: %s", args[0])
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return "", "", fmt.Errorf("reading script file: %w", err)
		}
		return string(content), file, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", "", errors.New("no script given (see -h)")
	}
	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", fmt.Errorf("reading from stdin: %w", err)
	}
	return string(content), "", nil
}

func findScriptFile(filename string) string {
	if _, err := os.Stat(filename); err == nil {
		return filename
	}
	if filepath.Ext(filename) == "" {
		pawFile := filename + ".paw"
		if _, err := os.Stat(pawFile); err == nil {
			return pawFile
		}
	}
	return ""
}

func showUsage() {
	usage := `Usage: pawmedia [options] [script.paw]
       pawmedia [options] < input.paw
       pawmedia [options] -e 'script'

Runs a script with the media:: commands, then services window, input and
timer events until the script calls exit or the window is closed.

Options:
  -d, -debug          Enable debug output
  -backend NAME       Video backend: auto, tcell or headless
  -config FILE        Config file (default ~/.paw/pawmedia.toml)
  -legacy-pixels      Reproduce historical pixel access quirks
  -e SCRIPT           Execute SCRIPT instead of a file
  -version            Show version
`
	fmt.Fprint(os.Stderr, usage)
}
