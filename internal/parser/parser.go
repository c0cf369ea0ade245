// Package parser defines the contract for turning a raw export object into
// documents.
package parser

import (
	"io"

	"graph2sql/internal/document"
)

// Parser decodes every document contained in r. A parser either returns all
// documents of the input or an error; partial results are not returned.
type Parser interface {
	Parse(r io.Reader) ([]document.Document, error)
}

// Func adapts a function to the Parser interface.
type Func func(r io.Reader) ([]document.Document, error)

// Parse calls f(r).
func (f Func) Parse(r io.Reader) ([]document.Document, error) { return f(r) }
