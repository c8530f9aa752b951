package pawmedia

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func newTestInterp(t *testing.T) (*PawMedia, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.Backend = "headless"
	cfg.AudioDevice = "none"
	cfg.Stdout = out
	cfg.Stderr = &bytes.Buffer{}
	ps := New(cfg)
	t.Cleanup(func() { ps.Close() })
	return ps, out
}

func mustEval(t *testing.T, ps *PawMedia, script string) string {
	t.Helper()
	v, err := ps.Eval(script)
	if err != nil {
		t.Fatalf("Eval(%q): %v", script, err)
	}
	return v.String()
}

func evalError(t *testing.T, ps *PawMedia, script string) *ScriptError {
	t.Helper()
	_, err := ps.Eval(script)
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("Eval(%q) error = %v, want *ScriptError", script, err)
	}
	return se
}

func TestBasicExecution(t *testing.T) {
	ps, _ := newTestInterp(t)

	called := false
	ps.RegisterCommand("test", func(ctx *Context) Result {
		called = true
		return BoolStatus(true)
	})

	result := ps.Execute("test")

	if !called {
		t.Error("Command was not called")
	}
	if boolState, ok := result.(BoolStatus); !ok || !bool(boolState) {
		t.Error("Expected true result")
	}
}

func TestCommandWithArguments(t *testing.T) {
	ps, _ := newTestInterp(t)

	var received []string
	ps.RegisterCommand("test_args", func(ctx *Context) Result {
		for _, a := range ctx.Args {
			received = append(received, a.String())
		}
		return BoolStatus(true)
	})

	ps.Execute(`test_args hello {two words} "quoted $x" [list a b]`)
	// $x is unset, so the quoted word fails before the call
	if received != nil {
		t.Fatalf("command ran despite a failed substitution: %q", received)
	}

	ps.Execute(`set x 42; test_args hello {two words} "quoted $x" [list a b]`)
	want := []string{"hello", "two words", "quoted 42", "a b"}
	if strings.Join(received, "|") != strings.Join(want, "|") {
		t.Errorf("args = %q, want %q", received, want)
	}
}

func TestCommandSequence(t *testing.T) {
	ps, _ := newTestInterp(t)

	var log []string
	ps.RegisterCommand("ok", func(ctx *Context) Result {
		log = append(log, "ok")
		return BoolStatus(true)
	})
	ps.RegisterCommand("fail", func(ctx *Context) Result {
		log = append(log, "fail")
		return BoolStatus(false)
	})

	tests := []struct {
		script string
		want   string
		status bool
	}{
		{"ok; ok; ok", "ok ok ok", true},
		{"ok\nok", "ok ok", true},
		{"fail; ok", "fail", false},
		{"ok & ok", "ok ok", true},
		{"fail & ok", "fail", false},
		{"fail | ok", "fail ok", true},
		{"ok | ok", "ok", true},
		{"fail & ok | ok", "fail ok", true},
	}
	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			log = nil
			res := ps.Execute(tt.script)
			if got := strings.Join(log, " "); got != tt.want {
				t.Errorf("ran %q, want %q", got, tt.want)
			}
			if IsSuccess(res) != tt.status {
				t.Errorf("status = %v, want %v", IsSuccess(res), tt.status)
			}
		})
	}
}

func TestVariablesAndSubstitution(t *testing.T) {
	ps, _ := newTestInterp(t)
	tests := []struct {
		script, want string
	}{
		{"set x 5; set y a${x}b", "a5b"},
		{`set z [list 1 {2 3}]`, "1 {2 3}"},
		{"llength $z", "2"},
		{"lindex $z 1", "2 3"},
		{"lindex $z end", "2 3"},
		{"incr x; incr x 10", "16"},
		{"set s {literal $x [no]}", "literal $x [no]"},
		{`set q "tab\there"`, "tab\there"},
		{"# a comment\nset after_comment 1", "1"},
		{"set long \\\n  joined", "joined"},
	}
	for _, tt := range tests {
		if got := mustEval(t, ps, tt.script); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestAppendCopiesSharedValues(t *testing.T) {
	ps, _ := newTestInterp(t)
	mustEval(t, ps, "set a abc; set b $a; append b def")
	if got := mustEval(t, ps, "set a"); got != "abc" {
		t.Errorf("a = %q after appending to b", got)
	}
	if got := mustEval(t, ps, "set b"); got != "abcdef" {
		t.Errorf("b = %q", got)
	}
}

func TestMacros(t *testing.T) {
	ps, _ := newTestInterp(t)
	mustEval(t, ps, "macro pair {a b} {return [list $a $b]}")
	if got := mustEval(t, ps, "pair 1 2"); got != "1 2" {
		t.Errorf("pair 1 2 = %q", got)
	}
	if got := mustEval(t, ps, "pair 1"); got != "1 {}" {
		t.Errorf("missing parameter: %q", got)
	}

	mustEval(t, ps, "macro count {} {result $#}")
	if got := mustEval(t, ps, "count a b c"); got != "3" {
		t.Errorf("$# = %q", got)
	}
	mustEval(t, ps, "macro second {} {result $2}")
	if got := mustEval(t, ps, "second a b"); got != "b" {
		t.Errorf("$2 = %q", got)
	}

	t.Run("locals stay local", func(t *testing.T) {
		mustEval(t, ps, "set g outer; macro shadow {} {set g inner; set ::seen $g}")
		mustEval(t, ps, "shadow")
		if got := mustEval(t, ps, "set g"); got != "outer" {
			t.Errorf("global g = %q", got)
		}
		if got := mustEval(t, ps, "set seen"); got != "inner" {
			t.Errorf("::seen = %q", got)
		}
	})

	t.Run("command names are reserved", func(t *testing.T) {
		se := evalError(t, ps, "macro set {} {}")
		if !strings.Contains(se.Message, "a command of that name exists") {
			t.Errorf("message = %q", se.Message)
		}
	})

	if !ps.HasMacro("pair") {
		t.Error("HasMacro(pair) = false")
	}
}

func TestErrorInfoTrace(t *testing.T) {
	ps, _ := newTestInterp(t)
	mustEval(t, ps, "macro inner {} {error boom}")
	se := evalError(t, ps, "inner")
	if se.Message != "boom" {
		t.Errorf("message = %q", se.Message)
	}
	want := "boom\n    while executing\n\"error boom\"\n    (macro \"inner\")\n    invoked from within\n\"inner\""
	if se.ErrorInfo != want {
		t.Errorf("errorInfo =\n%s\nwant\n%s", se.ErrorInfo, want)
	}
	if se.ErrorCode != "NONE" {
		t.Errorf("errorCode = %q", se.ErrorCode)
	}

	se = evalError(t, ps, "error boom {} {MEDIA test}")
	if se.ErrorCode != "MEDIA test" {
		t.Errorf("explicit errorCode = %q", se.ErrorCode)
	}
	if got := mustEval(t, ps, "set errorCode"); got != "MEDIA test" {
		t.Errorf("$errorCode = %q", got)
	}
}

func TestUnknownCommandAndParseErrors(t *testing.T) {
	ps, _ := newTestInterp(t)
	se := evalError(t, ps, "nosuch 1 2")
	if se.Message != `invalid command name "nosuch"` {
		t.Errorf("message = %q", se.Message)
	}

	for script, msg := range map[string]string{
		"set x {abc":  "missing close-brace",
		`set x "abc`:  `missing "`,
		"set x [list": "missing close-bracket",
		"set x {a}b":  "extra characters after close-brace",
	} {
		se := evalError(t, ps, script)
		if !strings.Contains(se.Message, msg) {
			t.Errorf("%q: message %q, want %q", script, se.Message, msg)
		}
		if se.ErrorCode != "PARSE" {
			t.Errorf("%q: errorCode %q", script, se.ErrorCode)
		}
	}

	if got := evalError(t, ps, "set nope").Message; got != `can't read "nope": no such variable` {
		t.Errorf("unset read: %q", got)
	}
}

func TestCatchAndIf(t *testing.T) {
	ps, _ := newTestInterp(t)
	if got := mustEval(t, ps, "catch {error oops} msg"); got != "1" {
		t.Errorf("catch of error = %q", got)
	}
	if got := mustEval(t, ps, "set msg"); got != "oops" {
		t.Errorf("msg = %q", got)
	}
	if got := mustEval(t, ps, "catch {set a 1}"); got != "0" {
		t.Errorf("catch of success = %q", got)
	}

	tests := []struct {
		script, want string
	}{
		{"if {eq 1 1} {result yes} else {result no}", "yes"},
		{"if {eq 1 2} {result yes} else {result no}", "no"},
		{"if {eq 1 2} {result a} elseif {lt 1 2} {result b} else {result c}", "b"},
		{"if {gt 1 2} {result a}", ""},
		{"if {ne a b} {result differ}", "differ"},
	}
	for _, tt := range tests {
		if got := mustEval(t, ps, tt.script); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestEchoAndExit(t *testing.T) {
	ps, out := newTestInterp(t)
	ps.Execute("echo hello {big world}")
	if out.String() != "hello big world\n" {
		t.Errorf("output = %q", out.String())
	}

	ps.Execute("exit 3; echo unreachable")
	exited, code := ps.ExitRequested()
	if !exited || code != 3 {
		t.Errorf("ExitRequested = %v, %d", exited, code)
	}
	if strings.Contains(out.String(), "unreachable") {
		t.Error("commands ran after exit")
	}
}

func TestCallPreservingRestoresState(t *testing.T) {
	ps, _ := newTestInterp(t)
	mustEval(t, ps, "macro failing {} {set ::ran 1; error inside}")
	ps.Execute("catch {error earlier} ; result keep")
	infoBefore := ps.State().ErrorInfo()
	codeBefore := ps.State().ErrorCode()

	err := ps.CallPreserving(NewValue("failing"))
	var se *ScriptError
	if !errors.As(err, &se) || se.Message != "inside" {
		t.Fatalf("CallPreserving error = %v", err)
	}
	if got := ps.Result().String(); got != "keep" {
		t.Errorf("result = %q after background call", got)
	}
	if ps.State().ErrorInfo() != infoBefore || ps.State().ErrorCode() != codeBefore {
		t.Errorf("error variables changed: %q / %q", ps.State().ErrorInfo(), ps.State().ErrorCode())
	}
	if v, ok := ps.GetVariable("ran"); !ok || v.String() != "1" {
		t.Error("the background call did not run")
	}
}

func TestBackgroundErrors(t *testing.T) {
	t.Run("bgerror macro", func(t *testing.T) {
		ps, _ := newTestInterp(t)
		mustEval(t, ps, "macro bgerror {msg} {set ::caught $msg; set ::info $::errorInfo}")
		ps.BackgroundError(&ScriptError{Message: "bad", ErrorInfo: "bad\n    trace", ErrorCode: "NONE"})
		if got := mustEval(t, ps, "set caught"); got != "bad" {
			t.Errorf("caught = %q", got)
		}
		if got := mustEval(t, ps, "set info"); got != "bad\n    trace" {
			t.Errorf("errorInfo seen by bgerror = %q", got)
		}
	})

	t.Run("go handler", func(t *testing.T) {
		ps, _ := newTestInterp(t)
		var got *ScriptError
		ps.SetBackgroundErrorHandler(func(err *ScriptError) { got = err })
		ps.BackgroundError(errors.New("plain"))
		if got == nil || got.Message != "plain" || got.ErrorCode != "NONE" {
			t.Errorf("handler got %+v", got)
		}
	})

	t.Run("failing bgerror falls back", func(t *testing.T) {
		ps, _ := newTestInterp(t)
		mustEval(t, ps, "macro bgerror {msg} {error again}")
		var got *ScriptError
		ps.SetBackgroundErrorHandler(func(err *ScriptError) { got = err })
		ps.BackgroundError(errors.New("first"))
		if got == nil || got.Message != "first" {
			t.Errorf("handler got %+v", got)
		}
	})
}

func TestAfterAndUpdate(t *testing.T) {
	ps, _ := newTestInterp(t)
	id := mustEval(t, ps, "after 0 {set ::fired 1}")
	if !strings.HasPrefix(id, "after#") {
		t.Errorf("after id = %q", id)
	}
	cancelled := mustEval(t, ps, "after 0 {set ::cancelled 1}")
	mustEval(t, ps, "after cancel "+cancelled)
	if got := mustEval(t, ps, "after info"); got != id {
		t.Errorf("after info = %q, want %q", got, id)
	}
	mustEval(t, ps, "result before; update")
	if v, ok := ps.GetVariable("fired"); !ok || v.String() != "1" {
		t.Error("timer did not fire during update")
	}
	if _, ok := ps.GetVariable("cancelled"); ok {
		t.Error("cancelled timer fired")
	}

	t.Run("timer errors go to the background channel", func(t *testing.T) {
		var got *ScriptError
		ps.SetBackgroundErrorHandler(func(err *ScriptError) { got = err })
		mustEval(t, ps, "after 0 {error late}; update")
		if got == nil || got.Message != "late" {
			t.Fatalf("background error = %+v", got)
		}
		if !strings.HasSuffix(got.ErrorInfo, "(\"after\" script)") {
			t.Errorf("errorInfo = %q", got.ErrorInfo)
		}
	})
}
