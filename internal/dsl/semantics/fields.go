package semantics

import (
	"fmt"

	"github.com/chariotdev/chariot/internal/dsl/parser"
	"github.com/chariotdev/chariot/internal/recipe"
)

// fieldSet wraps an object fragment's fields so each can be consumed at
// most once. Whatever remains after a recipe's known fields are consumed is
// reported as an unknown-field error.
type fieldSet struct {
	remaining map[string]parser.Fragment
}

func newFieldSet(obj parser.Fragment) (*fieldSet, error) {
	if obj.Kind != parser.FragObject {
		return nil, fmt.Errorf("%w: expected object, got %v", ErrUnexpectedFragment, obj.Kind)
	}
	m := make(map[string]parser.Fragment, len(obj.Fields))
	for _, f := range obj.Fields {
		m[f.Key] = f.Value
	}
	return &fieldSet{remaining: m}, nil
}

func (fs *fieldSet) take(key string) (parser.Fragment, bool) {
	v, ok := fs.remaining[key]
	if ok {
		delete(fs.remaining, key)
	}
	return v, ok
}

// leftover returns one arbitrary remaining key, for a deterministic-enough
// error message (map iteration order is irrelevant to correctness here: any
// leftover field is already an error).
func (fs *fieldSet) leftover() (string, bool) {
	for k := range fs.remaining {
		return k, true
	}
	return "", false
}

func asString(f parser.Fragment) (string, error) {
	if f.Kind != parser.FragString {
		return "", fmt.Errorf("%w: expected string, got %v", ErrUnexpectedFragment, f.Kind)
	}
	return f.Str, nil
}

func asName(f parser.Fragment) (string, error) {
	switch f.Kind {
	case parser.FragString:
		return f.Str, nil
	case parser.FragIdentifier:
		return f.Name, nil
	default:
		return "", fmt.Errorf("%w: expected name, got %v", ErrUnexpectedFragment, f.Kind)
	}
}

func asBool(f parser.Fragment) (bool, error) {
	name, err := asName(f)
	if err != nil {
		return false, err
	}
	switch name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected true/false, got %q", ErrUnexpectedFragment, name)
	}
}

func asCode(f parser.Fragment) (*recipe.CodeBlock, error) {
	if f.Kind != parser.FragCode {
		return nil, fmt.Errorf("%w: expected code block, got %v", ErrUnexpectedFragment, f.Kind)
	}
	if !recipe.SupportedLang(f.Lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLang, f.Lang)
	}
	return &recipe.CodeBlock{Lang: f.Lang, Code: f.Str}, nil
}

func asList(f parser.Fragment) ([]parser.Fragment, error) {
	if f.Kind != parser.FragList {
		return nil, fmt.Errorf("%w: expected list, got %v", ErrUnexpectedFragment, f.Kind)
	}
	return f.Items, nil
}
