// Package markup checks HTML documents for syntax errors.
//
// Minifiers are lenient: given a truncated tag or a broken inline script they
// happily produce output. Check is run before minification so that such
// documents are reported and skipped instead of being published half-broken.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
	"golang.org/x/net/html"
)

// SyntaxError reports a document which cannot be parsed.
type SyntaxError struct {
	Name string // file name, if known
	Line int    // 1-based, 0 if unknown
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.Name != "" {
		b.WriteString(e.Name)
		b.WriteByte(':')
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d:%d:", e.Line, e.Col)
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(e.Msg)
	return b.String()
}

// IsSyntaxError returns true if err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// WithName returns err with the file name set if it is a *SyntaxError,
// otherwise returns err unchanged.
func WithName(err error, name string) error {
	var se *SyntaxError
	if !errors.As(err, &se) {
		return err
	}
	ne := *se
	ne.Name = name
	return &ne
}

// FromParseError converts errors returned by tdewolff parsers
// into *SyntaxError. Other errors are returned unchanged.
func FromParseError(err error) error {
	var pe *parse.Error
	if !errors.As(err, &pe) {
		return err
	}
	return &SyntaxError{Line: pe.Line, Col: pe.Column, Msg: pe.Message}
}

func errorAt(data []byte, offset int, format string, args ...interface{}) *SyntaxError {
	line, col, _ := parse.Position(bytes.NewReader(data), offset)
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// isJavaScript reports whether the value of script's type attribute
// denotes JavaScript.
func isJavaScript(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "module", "text/javascript", "application/javascript",
		"text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}

// Check returns a *SyntaxError if data is not valid UTF-8, ends inside
// a tag, or (when scripts is true) contains an inline JavaScript block
// which doesn't parse.
func Check(data []byte, scripts bool) error {
	if !utf8.Valid(data) {
		offset := 0
		for offset < len(data) {
			r, size := utf8.DecodeRune(data[offset:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			offset += size
		}
		return errorAt(data, offset, "invalid UTF-8 encoding")
	}
	return scan(data, func(offset int, raw []byte, script bool) error {
		if script && scripts {
			return checkScript(data, offset, raw)
		}
		return nil
	})
}

// MapScripts returns data with the body of every inline JavaScript
// block replaced by the result of fn. Other content is copied as is.
// Errors returned by fn are reported as a *SyntaxError positioned
// at the script.
func MapScripts(data []byte, fn func(script []byte) ([]byte, error)) ([]byte, error) {
	out := make([]byte, 0, len(data))
	err := scan(data, func(offset int, raw []byte, script bool) error {
		if !script {
			out = append(out, raw...)
			return nil
		}
		b, err := fn(raw)
		if err != nil {
			return scriptError(data, offset, err)
		}
		out = append(out, b...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scan tokenizes data and calls visit for every token with its offset
// and raw bytes; script is true for bodies of inline JavaScript blocks.
// Input which ends inside a tag is a *SyntaxError.
func scan(data []byte, visit func(offset int, raw []byte, script bool) error) error {
	z := html.NewTokenizer(bytes.NewReader(data))
	offset := 0
	inScript := false
	scriptIsJS := false
	for {
		tt := z.Next()
		// TagName and TagAttr lowercase the tokenizer's buffer in place.
		raw := append([]byte(nil), z.Raw()...)
		script := false
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return err
			}
			if len(raw) > 0 {
				return errorAt(data, offset, "unexpected end of input inside tag")
			}
			return nil
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				break
			}
			inScript, scriptIsJS = true, true
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				if string(k) == "type" && !isJavaScript(string(v)) {
					scriptIsJS = false
				}
			}
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			script = inScript && scriptIsJS
		}
		if err := visit(offset, raw, script); err != nil {
			return err
		}
		offset += len(raw)
	}
}

// checkScript parses script which starts at offset in data.
func checkScript(data []byte, offset int, script []byte) error {
	_, err := js.Parse(parse.NewInputBytes(script), js.Options{})
	if err == nil {
		return nil
	}
	return scriptError(data, offset, err)
}

// scriptError converts err, reported for a script starting
// at offset in data, into *SyntaxError with position in data.
func scriptError(data []byte, offset int, err error) error {
	var pe *parse.Error
	if !errors.As(err, &pe) {
		return errorAt(data, offset, "script: %s", err)
	}
	line, col, _ := parse.Position(bytes.NewReader(data), offset)
	if pe.Line > 1 {
		line += pe.Line - 1
		col = pe.Column
	} else {
		col += pe.Column - 1
	}
	return &SyntaxError{Line: line, Col: col, Msg: "script: " + pe.Message}
}
