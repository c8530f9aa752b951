package pawmedia

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Value is a script value. Its text is authoritative; typed views such as
// colours and rectangles are cached alongside it and thrown away whenever
// the text changes.
//
// Values are reference counted by whoever stores them (variables, queued
// payloads, argument lists). A value referenced from more than one place
// is shared and must be duplicated before it is changed.
type Value struct {
	text    string
	version uint64
	refs    atomic.Int32
	cell    *cellSnapshot
}

var (
	ErrNotInteger = errors.New("expected integer")
	ErrNotBoolean = errors.New("expected boolean")
	ErrBadList    = errors.New("malformed list")
)

func NewValue(s string) *Value {
	return &Value{text: s}
}

func NewIntValue(n int64) *Value {
	return &Value{text: strconv.FormatInt(n, 10)}
}

func NewBoolValue(b bool) *Value {
	if b {
		return &Value{text: "1"}
	}
	return &Value{text: "0"}
}

// NewBytesValue stores raw bytes; Bytes returns them unchanged.
func NewBytesValue(b []byte) *Value {
	return &Value{text: string(b)}
}

// NewListValue formats items as a list.
func NewListValue(items ...*Value) *Value {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = quoteListElement(it.String())
	}
	return &Value{text: strings.Join(parts, " ")}
}

// NewStringList formats plain strings as a list.
func NewStringList(items ...string) *Value {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = quoteListElement(it)
	}
	return &Value{text: strings.Join(parts, " ")}
}

func (v *Value) String() string {
	if v == nil {
		return ""
	}
	return v.text
}

// SetString rewrites the text and invalidates every cached view.
func (v *Value) SetString(s string) {
	v.text = s
	v.version++
	v.cell = nil
}

// Version changes every time the text is rewritten.
func (v *Value) Version() uint64 { return v.version }

func (v *Value) Retain() *Value {
	v.refs.Add(1)
	return v
}

// Release drops one reference. The last release frees the cached views.
func (v *Value) Release() {
	if v.refs.Add(-1) <= 0 {
		v.cell = nil
	}
}

func (v *Value) RefCount() int { return int(v.refs.Load()) }

func (v *Value) IsShared() bool { return v.refs.Load() > 1 }

// Dup returns an unshared copy with the same text. Cached views are not
// carried over; the copy builds its own on first use.
func (v *Value) Dup() *Value {
	return &Value{text: v.text}
}

func (v *Value) Bytes() []byte {
	return []byte(v.text)
}

func (v *Value) Int() (int64, error) {
	return parseInt(v.text)
}

func parseInt(s string) (int64, error) {
	t := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(t, "-") || strings.HasPrefix(t, "+") {
		neg = t[0] == '-'
		t = t[1:]
	}
	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		n, err = strconv.ParseUint(t[2:], 16, 64)
	} else {
		n, err = strconv.ParseUint(t, 10, 64)
	}
	if err != nil || t == "" {
		return 0, fmt.Errorf("%w but got \"%s\"", ErrNotInteger, s)
	}
	if neg {
		return -int64(n), nil
	}
	return int64(n), nil
}

func (v *Value) Bool() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v.text)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	if n, err := v.Int(); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("%w but got \"%s\"", ErrNotBoolean, v.text)
}

// List splits the text into list elements.
func (v *Value) List() ([]*Value, error) {
	words, err := splitList(v.text)
	if err != nil {
		return nil, err
	}
	out := make([]*Value, len(words))
	for i, w := range words {
		out[i] = NewValue(w)
	}
	return out, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// splitList parses list syntax: whitespace separated words, {braced}
// words taken literally, "quoted" words and backslash escapes.
func splitList(s string) ([]string, error) {
	var out []string
	i := 0
	for {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return out, nil
		}
		switch s[i] {
		case '{':
			depth, j := 1, i+1
			for ; j < len(s) && depth > 0; j++ {
				switch s[j] {
				case '\\':
					j++
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("%w: unmatched open brace in list", ErrBadList)
			}
			if j < len(s) && !isSpace(s[j]) {
				return nil, fmt.Errorf("%w: list element in braces followed by \"%c\" instead of space", ErrBadList, s[j])
			}
			out = append(out, s[i+1:j-1])
			i = j
		case '"':
			var b strings.Builder
			j := i + 1
			for ; j < len(s) && s[j] != '"'; j++ {
				if s[j] == '\\' && j+1 < len(s) {
					j++
					b.WriteByte(unescape(s[j]))
					continue
				}
				b.WriteByte(s[j])
			}
			if j >= len(s) {
				return nil, fmt.Errorf("%w: unmatched open quote in list", ErrBadList)
			}
			out = append(out, b.String())
			i = j + 1
		default:
			var b strings.Builder
			j := i
			for ; j < len(s) && !isSpace(s[j]); j++ {
				if s[j] == '\\' && j+1 < len(s) {
					j++
					b.WriteByte(unescape(s[j]))
					continue
				}
				b.WriteByte(s[j])
			}
			out = append(out, b.String())
			i = j
		}
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	}
	return c
}

// quoteListElement renders s so that splitList gives it back unchanged.
func quoteListElement(s string) string {
	if s == "" {
		return "{}"
	}
	if !strings.ContainsAny(s, " \t\n\r\f\v{}\"\\;$[]") && s[0] != '#' {
		return s
	}
	if bracesBalanced(s) && !strings.HasSuffix(s, "\\") {
		return "{" + s + "}"
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			b.WriteString(`\n`)
			continue
		case '\t':
			b.WriteString(`\t`)
			continue
		case ' ', '{', '}', '"', '\\', ';', '$', '[', ']', '\r', '\f', '\v':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func bracesBalanced(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
