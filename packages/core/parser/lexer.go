package parser

import (
	"strconv"
	"strings"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenBlank
	TokenComment
	TokenCaseSeparator
	TokenAnnotation
	TokenVariable
	TokenStep
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenBlank:
		return "blank"
	case TokenComment:
		return "comment"
	case TokenCaseSeparator:
		return "case separator"
	case TokenAnnotation:
		return "annotation"
	case TokenVariable:
		return "variable"
	case TokenStep:
		return "step"
	default:
		return "unknown"
	}
}

// Token is one logical line of a suite file. For annotations and
// variables Value holds the name and Literal the value; for steps Value
// holds the keyword and Literal the remaining arguments.
type Token struct {
	Type    TokenType
	Value   string
	Literal string
	Line    int
	Column  int
}

type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	line    int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) readLine() string {
	start := l.pos
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	line := l.input[start:l.pos]
	if l.ch == '\n' {
		l.readChar()
	}
	return strings.TrimRight(line, "\r")
}

func (l *Lexer) NextToken() Token {
	if l.ch == 0 && l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Line: l.line}
	}

	lineNo := l.line
	raw := l.readLine()
	l.line++

	trimmed := strings.TrimSpace(raw)
	column := strings.Index(raw, trimmed) + 1

	tok := Token{Line: lineNo, Column: column}

	switch {
	case trimmed == "":
		tok.Type = TokenBlank
	case strings.HasPrefix(trimmed, "###"):
		tok.Type = TokenCaseSeparator
		tok.Value = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	case strings.HasPrefix(trimmed, "#"):
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		if strings.HasPrefix(rest, "@") {
			return l.readAnnotation(tok, rest)
		}
		tok.Type = TokenComment
		tok.Value = rest
	case strings.HasPrefix(trimmed, "//"):
		tok.Type = TokenComment
		tok.Value = strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))
	case strings.HasPrefix(trimmed, "@"):
		return l.readAnnotation(tok, trimmed)
	default:
		tok.Type = TokenStep
		keyword, args, _ := strings.Cut(trimmed, " ")
		tok.Value = keyword
		tok.Literal = strings.TrimSpace(args)
	}

	return tok
}

// readAnnotation handles both `@name value` annotations and
// `@name = value` variable declarations.
func (l *Lexer) readAnnotation(tok Token, text string) Token {
	text = strings.TrimPrefix(text, "@")
	end := strings.IndexAny(text, " \t=")
	if end < 0 {
		tok.Type = TokenAnnotation
		tok.Value = text
		return tok
	}

	name := text[:end]
	rest := strings.TrimSpace(text[end:])
	if strings.HasPrefix(rest, "=") {
		tok.Type = TokenVariable
		tok.Value = name
		tok.Literal = strings.TrimSpace(strings.TrimPrefix(rest, "="))
		return tok
	}

	tok.Type = TokenAnnotation
	tok.Value = name
	tok.Literal = rest
	return tok
}

// Field is one whitespace separated argument of a step line. A field
// wrapped entirely in quotes is unquoted and marked Quoted; quotes inside
// a bare field (as in get("a b")) are kept verbatim.
type Field struct {
	Text   string
	Quoted bool
	Column int
}

// SplitFields splits step arguments on whitespace outside of quotes.
func SplitFields(s string) ([]Field, error) {
	var fields []Field
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}

		start := i
		var quote byte
		for i < len(s) {
			c := s[i]
			if quote != 0 {
				if c == '\\' && quote == '"' && i+1 < len(s) {
					i += 2
					continue
				}
				if c == quote {
					quote = 0
				}
				i++
				continue
			}
			if c == '"' || c == '\'' {
				quote = c
				i++
				continue
			}
			if c == ' ' || c == '\t' {
				break
			}
			i++
		}
		if quote != 0 {
			return nil, &ParseError{Column: start + 1, Message: "unterminated quoted string"}
		}

		raw := s[start:i]
		field := Field{Text: raw, Column: start + 1}
		if len(raw) >= 2 && isQuote(raw[0]) && raw[len(raw)-1] == raw[0] && closesAtEnd(raw) {
			text, err := unquote(raw)
			if err != nil {
				return nil, &ParseError{Column: start + 1, Message: "invalid quoted string " + raw}
			}
			field.Text = text
			field.Quoted = true
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// closesAtEnd reports whether the opening quote of raw is closed by its
// final character rather than somewhere in the middle.
func closesAtEnd(raw string) bool {
	q := raw[0]
	for i := 1; i < len(raw); i++ {
		if raw[i] == '\\' && q == '"' {
			i++
			continue
		}
		if raw[i] == q {
			return i == len(raw)-1
		}
	}
	return false
}

func unquote(raw string) (string, error) {
	if raw[0] == '\'' {
		return raw[1 : len(raw)-1], nil
	}
	return strconv.Unquote(raw)
}
