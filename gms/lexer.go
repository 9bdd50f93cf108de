package gms

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_IDENT = iota
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_COMMENT
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	// flag words like VERTEX|NORMAL|WEIGHT4 are one token
	lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_\|]*`), getToken(TOKEN_IDENT))
	lexer.Add([]byte(`[\+\-]?[0-9]*\.?[0-9]+([eE][\+\-]?[0-9]+)?`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte(`"[^"]*"`), getToken(TOKEN_STRING))
	lexer.Add([]byte(`\{`), getToken(TOKEN_LBRACE))
	lexer.Add([]byte(`\}`), getToken(TOKEN_RBRACE))
	lexer.Add([]byte(`//[^\n]*`), getToken(TOKEN_COMMENT))
	lexer.Add([]byte(`\s+`), skip)
	// swallow stray bytes instead of failing the whole line
	lexer.Add([]byte(`.`), skip)
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

type token struct {
	kind int
	text string // for TOKEN_STRING the text between the quotes
}

func tokenizeLine(line string) ([]token, error) {
	scanner, err := lexer.Scanner([]byte(line))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	toks := make([]token, 0, 8)
	for Itok, err, eos := scanner.Next(); !eos; Itok, err, eos = scanner.Next() {
		if err != nil {
			return toks, errors.Wrapf(err, "Failed to parse token")
		}
		tok := Itok.(*lexmachine.Token)
		if tok.Type == TOKEN_COMMENT {
			continue
		}
		text := string(tok.Lexeme)
		if tok.Type == TOKEN_STRING {
			text = text[1 : len(text)-1]
		}
		toks = append(toks, token{kind: tok.Type, text: text})
	}
	return toks, nil
}

// firstString returns the first quoted token of the line, the way block
// and reference names are written in dumps.
func firstString(toks []token) (string, bool) {
	for _, t := range toks {
		if t.kind == TOKEN_STRING {
			return t.text, t.text != ""
		}
	}
	return "", false
}

// allStrings returns every quoted token in order of appearance.
func allStrings(toks []token) []string {
	var out []string
	for _, t := range toks {
		if t.kind == TOKEN_STRING {
			out = append(out, t.text)
		}
	}
	return out
}

// floatValues converts every numeric token to float32, stopping at the
// first one that does not parse.
func floatValues(toks []token) []float32 {
	var out []float32
	for _, t := range toks {
		if t.kind != TOKEN_NUMBER {
			continue
		}
		f, err := strconv.ParseFloat(t.text, 32)
		if err != nil {
			break
		}
		out = append(out, float32(f))
	}
	return out
}

// intValues converts every numeric token that holds an integer, skipping
// fractional ones.
func intValues(toks []token) []int {
	var out []int
	for _, t := range toks {
		if t.kind != TOKEN_NUMBER {
			continue
		}
		n, err := strconv.Atoi(t.text)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func isIntToken(t token) (int, bool) {
	if t.kind != TOKEN_NUMBER {
		return 0, false
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, false
	}
	return n, true
}
