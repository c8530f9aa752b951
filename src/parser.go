package pawmedia

import (
	"fmt"
	"strings"
)

// PartKind says how one piece of a word is produced
type PartKind int

const (
	PartLiteral  PartKind = iota // text taken as is
	PartVariable                 // $name or ${name}
	PartCommand                  // [script]
)

// WordPart is one piece of a word
type WordPart struct {
	Kind PartKind
	Text string // literal text, variable name or nested script
}

// Word is one argument of a command
type Word struct {
	Parts []WordPart
}

// Literal returns the word's text when it needs no substitution
func (w *Word) Literal() (string, bool) {
	var b strings.Builder
	for _, p := range w.Parts {
		if p.Kind != PartLiteral {
			return "", false
		}
		b.WriteString(p.Text)
	}
	return b.String(), true
}

// Separator links a command to the one after it
type Separator byte

const (
	SepNone Separator = 0
	SepSeq  Separator = ';' // always run the next command
	SepAnd  Separator = '&' // run the next command only on success
	SepOr   Separator = '|' // run the next command only on failure
)

// ParsedCommand is one command of a script
type ParsedCommand struct {
	Words    []*Word
	Source   string // command text, used in error traces
	Position *SourcePosition
	Sep      Separator // separator that follows this command
}

// Parser splits scripts into commands with position tracking
type Parser struct {
	src      string
	pos      int
	line     int
	col      int
	filename string
}

// NewParser creates a new parser
func NewParser(source, filename string) *Parser {
	return &Parser{src: source, line: 1, col: 1, filename: filename}
}

// SyntaxError reports malformed script text
type SyntaxError struct {
	Message  string
	Position *SourcePosition
}

func (e *SyntaxError) Error() string { return e.Message }

func (e *SyntaxError) ErrorCode() string { return "PARSE" }

func (p *Parser) eof() bool { return p.pos >= len(p.src) }

func (p *Parser) peek() byte { return p.src[p.pos] }

func (p *Parser) advance() byte {
	c := p.src[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

func (p *Parser) position() *SourcePosition {
	return &SourcePosition{Line: p.line, Column: p.col, Filename: p.filename}
}

func (p *Parser) errorf(pos *SourcePosition, format string, args ...interface{}) error {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), Position: pos}
}

// ParseCommandSequence parses the whole script
func (p *Parser) ParseCommandSequence() ([]*ParsedCommand, error) {
	var cmds []*ParsedCommand
	for {
		p.skipBlank()
		if p.eof() {
			return cmds, nil
		}
		if p.peek() == '#' {
			p.skipComment()
			continue
		}
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		if len(cmd.Words) > 0 {
			cmds = append(cmds, cmd)
		} else if cmd.Sep == SepAnd || cmd.Sep == SepOr {
			return nil, p.errorf(cmd.Position, "missing command before \"%c\"", cmd.Sep)
		}
	}
}

// skipBlank skips whitespace, newlines and semicolons between commands
func (p *Parser) skipBlank() {
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || c == ';' {
			p.advance()
			continue
		}
		if c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '\n' {
			p.advance()
			p.advance()
			continue
		}
		return
	}
}

func (p *Parser) skipComment() {
	for !p.eof() {
		c := p.advance()
		if c == '\\' && !p.eof() {
			p.advance()
			continue
		}
		if c == '\n' {
			return
		}
	}
}

func (p *Parser) parseCommand() (*ParsedCommand, error) {
	cmd := &ParsedCommand{Position: p.position()}
	start := p.pos
	for {
		// skip spaces within the command
		for !p.eof() {
			c := p.peek()
			if c == ' ' || c == '\t' || c == '\r' {
				p.advance()
			} else if c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '\n' {
				p.advance()
				p.advance()
			} else {
				break
			}
		}
		if p.eof() {
			cmd.Source = strings.TrimSpace(p.src[start:p.pos])
			return cmd, nil
		}
		switch c := p.peek(); c {
		case '\n', ';':
			cmd.Source = strings.TrimSpace(p.src[start:p.pos])
			p.advance()
			cmd.Sep = SepSeq
			return cmd, nil
		case '&', '|':
			cmd.Source = strings.TrimSpace(p.src[start:p.pos])
			p.advance()
			cmd.Sep = Separator(c)
			return cmd, nil
		}
		w, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		cmd.Words = append(cmd.Words, w)
	}
}

func (p *Parser) parseWord() (*Word, error) {
	switch p.peek() {
	case '{':
		text, err := p.parseBraced()
		if err != nil {
			return nil, err
		}
		if err := p.expectWordEnd("close-brace"); err != nil {
			return nil, err
		}
		return &Word{Parts: []WordPart{{Kind: PartLiteral, Text: text}}}, nil
	case '"':
		pos := p.position()
		p.advance()
		w := &Word{}
		if err := p.parseParts(w, func(c byte) bool { return c == '"' }); err != nil {
			return nil, err
		}
		if p.eof() {
			return nil, p.errorf(pos, "missing \"")
		}
		p.advance()
		if err := p.expectWordEnd("close-quote"); err != nil {
			return nil, err
		}
		if len(w.Parts) == 0 {
			w.Parts = []WordPart{{Kind: PartLiteral}}
		}
		return w, nil
	}
	w := &Word{}
	err := p.parseParts(w, func(c byte) bool {
		return isSpace(c) || c == ';' || c == '&' || c == '|'
	})
	return w, err
}

func (p *Parser) expectWordEnd(what string) error {
	if p.eof() {
		return nil
	}
	c := p.peek()
	if isSpace(c) || c == ';' || c == '&' || c == '|' || c == ']' {
		return nil
	}
	return p.errorf(p.position(), "extra characters after %s", what)
}

// parseBraced reads a {braced} word and returns its body unchanged
func (p *Parser) parseBraced() (string, error) {
	pos := p.position()
	p.advance()
	start := p.pos
	depth := 1
	for !p.eof() {
		c := p.advance()
		switch c {
		case '\\':
			if !p.eof() {
				p.advance()
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return p.src[start : p.pos-1], nil
			}
		}
	}
	return "", p.errorf(pos, "missing close-brace")
}

// parseParts reads substitutions and literal text until stop matches
func (p *Parser) parseParts(w *Word, stop func(byte) bool) error {
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			w.Parts = append(w.Parts, WordPart{Kind: PartLiteral, Text: lit.String()})
			lit.Reset()
		}
	}
	for !p.eof() {
		c := p.peek()
		if stop(c) {
			break
		}
		switch c {
		case '\\':
			p.advance()
			if p.eof() {
				lit.WriteByte('\\')
				break
			}
			e := p.advance()
			if e == '\n' {
				lit.WriteByte(' ')
			} else {
				lit.WriteByte(unescape(e))
			}
		case '$':
			name, ok, err := p.parseVarName()
			if err != nil {
				return err
			}
			if !ok {
				lit.WriteByte('$')
				continue
			}
			flush()
			w.Parts = append(w.Parts, WordPart{Kind: PartVariable, Text: name})
		case '[':
			script, err := p.parseBracket()
			if err != nil {
				return err
			}
			flush()
			w.Parts = append(w.Parts, WordPart{Kind: PartCommand, Text: script})
		default:
			lit.WriteByte(p.advance())
		}
	}
	flush()
	return nil
}

func isVarChar(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parseVarName reads $name, ${name}, $* or $#. A lone "$" is literal.
func (p *Parser) parseVarName() (string, bool, error) {
	pos := p.position()
	p.advance()
	if p.eof() {
		return "", false, nil
	}
	switch c := p.peek(); {
	case c == '{':
		p.advance()
		start := p.pos
		for !p.eof() && p.peek() != '}' {
			p.advance()
		}
		if p.eof() {
			return "", false, p.errorf(pos, "missing close-brace for variable name")
		}
		name := p.src[start:p.pos]
		p.advance()
		return name, true, nil
	case c == '*' || c == '#':
		p.advance()
		return string(c), true, nil
	case isVarChar(c):
		start := p.pos
		for !p.eof() && isVarChar(p.peek()) {
			p.advance()
		}
		return p.src[start:p.pos], true, nil
	}
	return "", false, nil
}

// parseBracket reads a [nested script] and returns its text
func (p *Parser) parseBracket() (string, error) {
	pos := p.position()
	p.advance()
	start := p.pos
	depth := 1
	for !p.eof() {
		c := p.advance()
		switch c {
		case '\\':
			if !p.eof() {
				p.advance()
			}
		case '{':
			// braces inside a nested script hide brackets
			bd := 1
			for !p.eof() && bd > 0 {
				switch p.advance() {
				case '\\':
					if !p.eof() {
						p.advance()
					}
				case '{':
					bd++
				case '}':
					bd--
				}
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return p.src[start : p.pos-1], nil
			}
		}
	}
	return "", p.errorf(pos, "missing close-bracket")
}
