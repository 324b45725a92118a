// Package parser builds a recipe-configuration fragment tree from the
// token stream produced by internal/dsl/lexer.
package parser

import (
	"fmt"
	"strings"
)

// Kind distinguishes the variants of Fragment.
type Kind int

const (
	FragIdentifier Kind = iota
	FragString
	FragCode
	FragRecipeRef
	FragList
	FragObject
	FragUnary
	FragBinary
)

// Fragment is a node in the parsed configuration tree. Which fields are
// meaningful depends on Kind:
//   - FragIdentifier: Name
//   - FragString:     Str
//   - FragCode:       Lang, Str (code body)
//   - FragRecipeRef:  Namespace, Name
//   - FragList:       Items
//   - FragObject:     Fields (duplicate "dependencies" keys pre-merged)
//   - FragUnary:      Op, Items[0]
//   - FragBinary:     Op, Items[0] (left), Items[1] (right)
type Fragment struct {
	Kind      Kind
	Name      string
	Namespace string
	Str       string
	Lang      string
	Op        byte
	Items     []Fragment
	Fields    []Field
}

// Field is one key/value pair of a FragObject fragment.
type Field struct {
	Key   string
	Value Fragment
}

// Directive is a top-level "@name arg" statement.
type Directive struct {
	Name string
	Arg  Fragment
}

// Definition is a top-level "key value" statement (a recipe declaration).
type Definition struct {
	Key   Fragment
	Value Fragment
}

// Item is one top-level element of a File: exactly one of Directive or
// Definition is non-nil.
type Item struct {
	Directive *Directive
	Definition *Definition
}

// File is the parsed result of one configuration source.
type File struct {
	Items []Item
}

// String renders a fragment back into DSL source, used both for debugging
// and for the lexer∘parser round-trip property.
func (f Fragment) String() string {
	var b strings.Builder
	f.write(&b)
	return b.String()
}

func (f Fragment) write(b *strings.Builder) {
	switch f.Kind {
	case FragIdentifier:
		b.WriteString(f.Name)
	case FragString:
		fmt.Fprintf(b, "%q", f.Str)
	case FragCode:
		fmt.Fprintf(b, "<%s>%s</%s>", f.Lang, f.Str, f.Lang)
	case FragRecipeRef:
		fmt.Fprintf(b, "%s/%s", f.Namespace, f.Name)
	case FragList:
		b.WriteByte('[')
		for i, item := range f.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			item.write(b)
		}
		b.WriteByte(']')
	case FragObject:
		b.WriteByte('{')
		for i, field := range f.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: ", field.Key)
			field.Value.write(b)
		}
		b.WriteByte('}')
	case FragUnary:
		b.WriteByte(f.Op)
		f.Items[0].write(b)
	case FragBinary:
		f.Items[0].write(b)
		fmt.Fprintf(b, " %c ", f.Op)
		f.Items[1].write(b)
	}
}

// String renders a directive back into DSL source.
func (d Directive) String() string {
	return fmt.Sprintf("@%s %s", d.Name, d.Arg.String())
}

// String renders a definition back into DSL source.
func (d Definition) String() string {
	return fmt.Sprintf("%s %s", d.Key.String(), d.Value.String())
}

// String renders the whole file back into DSL source, one item per line.
func (f File) String() string {
	var b strings.Builder
	for _, item := range f.Items {
		switch {
		case item.Directive != nil:
			b.WriteString(item.Directive.String())
		case item.Definition != nil:
			b.WriteString(item.Definition.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
