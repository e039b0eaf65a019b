package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// ValueValidator checks user-entered example values and assignment
// targets before they are sent to the interpreter.
type ValueValidator interface {
	// Validate returns the normalized value or a syntax error.
	Validate(ctx context.Context, value string) (string, error)
	// AssignTargets returns the variable names on the left of an
	// assignment.
	AssignTargets(lhs string) ([]string, error)
}

// StarlarkValidator parses values with the Starlark expression grammar,
// which accepts the Python literals and expressions examples are made of.
type StarlarkValidator struct {
	opts *syntax.FileOptions
}

// NewStarlarkValidator constructs a StarlarkValidator.
func NewStarlarkValidator() *StarlarkValidator {
	return &StarlarkValidator{opts: &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}}
}

// Validate parses value as a single expression.
func (v *StarlarkValidator) Validate(_ context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("empty value")
	}

	if _, err := v.opts.ParseExpr("<value>", value, 0); err != nil {
		return "", fmt.Errorf("invalid value %q: %w", value, err)
	}

	return value, nil
}

// AssignTargets accepts a name or a comma-separated list of names.
func (v *StarlarkValidator) AssignTargets(lhs string) ([]string, error) {
	lhs = strings.TrimSpace(lhs)

	expr, err := v.opts.ParseExpr("<target>", lhs, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid assignment target %q: %w", lhs, err)
	}

	return targetNames(expr)
}

func targetNames(expr syntax.Expr) ([]string, error) {
	switch e := expr.(type) {
	case *syntax.Ident:
		return []string{e.Name}, nil
	case *syntax.ParenExpr:
		return targetNames(e.X)
	case *syntax.TupleExpr:
		var names []string

		for _, x := range e.List {
			sub, err := targetNames(x)
			if err != nil {
				return nil, err
			}

			names = append(names, sub...)
		}

		return names, nil
	}

	return nil, fmt.Errorf("unsupported assignment target %T", expr)
}
