package graphql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Document errors.
var (
	ErrEmptyDocument   = errors.New("empty GraphQL document")
	ErrNotSubscription = errors.New("document has no subscription operation")
)

// Document is a parsed GraphQL subscription document.
//
// Documents are compared by pointer: parse once and reuse the same
// *Document across renders.
type Document struct {
	// Name is the subscription operation name (may be empty for anonymous operations).
	Name string

	// Source is the original document text sent to the server.
	Source string

	query *ast.QueryDocument
}

// ParseDocument parses src and selects its first subscription operation.
func ParseDocument(src string) (*Document, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmptyDocument
	}

	query, err := parser.ParseQuery(&ast.Source{Input: src})
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	for _, op := range query.Operations {
		if op.Operation == ast.Subscription {
			return &Document{Name: op.Name, Source: src, query: query}, nil
		}
	}
	return nil, ErrNotSubscription
}

// MustParse is like ParseDocument but panics on error. Intended for
// package-level document variables.
func MustParse(src string) *Document {
	doc, err := ParseDocument(src)
	if err != nil {
		panic(err)
	}
	return doc
}

// OperationName returns the operation name, or "anonymous" when unnamed.
func (d *Document) OperationName() string {
	if d == nil || d.Name == "" {
		return "anonymous"
	}
	return d.Name
}

// VariableNames returns the names of the variables the operation declares.
func (d *Document) VariableNames() []string {
	if d == nil || d.query == nil {
		return nil
	}
	for _, op := range d.query.Operations {
		if op.Operation != ast.Subscription || op.Name != d.Name {
			continue
		}
		names := make([]string, 0, len(op.VariableDefinitions))
		for _, v := range op.VariableDefinitions {
			names = append(names, v.Variable)
		}
		return names
	}
	return nil
}
