// Package json implements a newline-delimited JSON parser that turns each
// line of a graph export into a document.Document.
//
// It is deliberately simple and conservative:
//
//   - One JSON object per non-blank line:
//     {"~id":"v1","~label":"person","name":"Ann"}
//     {"~id":"v2","~label":"person","name":"Bob"}
//   - Field order inside each object is preserved (gjson walks the raw bytes
//     instead of decoding into a map).
//   - A malformed line, a top-level value that is not an object, or an input
//     with no non-blank line fails the whole input. Callers treat that as a
//     failure of the source object.
//
// Value mapping:
//
//	string          -> scalar, unescaped
//	number, bool    -> scalar, raw JSON text ("1.50" stays "1.50")
//	null            -> scalar ""
//	array           -> list; elements mapped with the same rules
//	object          -> scalar holding the raw JSON text
package json

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"graph2sql/internal/document"
	"graph2sql/internal/parser"
)

// ErrEmptyInput is returned for an input without any non-blank line.
var ErrEmptyInput = errors.New("json parser: empty input")

// DefaultMaxLineBytes bounds a single NDJSON line.
const DefaultMaxLineBytes = 64 << 20

// Options controls the NDJSON parser.
type Options struct {
	// MaxLineBytes bounds a single line. Zero means DefaultMaxLineBytes.
	MaxLineBytes int
}

// Parser is an NDJSON parser.Parser.
type Parser struct {
	opt Options
}

var _ parser.Parser = (*Parser)(nil)

// New returns an NDJSON parser.
func New(opt Options) *Parser {
	if opt.MaxLineBytes <= 0 {
		opt.MaxLineBytes = DefaultMaxLineBytes
	}
	return &Parser{opt: opt}
}

// Parse reads every line of r and returns one document per non-blank line.
// An input without documents yields ErrEmptyInput.
func (p *Parser) Parse(r io.Reader) ([]document.Document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), p.opt.MaxLineBytes)

	var (
		out  []document.Document
		line int
	)
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		doc, err := DecodeLine(raw)
		if err != nil {
			return nil, fmt.Errorf("json parser: line %d: %w", line, err)
		}
		out = append(out, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("json parser: read: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyInput
	}
	return out, nil
}

// DecodeLine decodes a single JSON object into a Document.
func DecodeLine(raw []byte) (document.Document, error) {
	if !gjson.ValidBytes(raw) {
		return document.Document{}, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return document.Document{}, fmt.Errorf("top-level value is %s, want object", root.Type)
	}

	var fields []document.Field
	root.ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, document.Field{
			Name:  key.String(),
			Value: toValue(value),
		})
		return true
	})
	return document.New(fields...), nil
}

func toValue(v gjson.Result) document.Value {
	if v.IsArray() {
		items := []string{}
		v.ForEach(func(_, elem gjson.Result) bool {
			items = append(items, scalarText(elem))
			return true
		})
		return document.List(items...)
	}
	return document.Scalar(scalarText(v))
}

func scalarText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	default:
		return v.Raw
	}
}
