package engine

import "fmt"

// Template is a parsed label template: literal text interleaved with field
// paths. Literals[i] precedes Paths[i]; Literals always has one more entry
// than Paths (the trailing literal, possibly empty).
type Template struct {
	Paths    []string
	Literals []string
}

// ParseTemplate splits a key template such as "literal{path.to.field}rest"
// into its literals and field paths.
//
// A template without any {} markers is treated as a single field path equal
// to the whole string, so plain column names keep working as keys. An empty
// template parses to zero paths and one empty literal.
func ParseTemplate(template string) (*Template, error) {
	if template == "" {
		return &Template{Literals: []string{""}}, nil
	}

	t := &Template{}
	var literal []byte
	var path []byte
	inBrace := false

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if inBrace {
				return nil, &TemplateSyntaxError{Template: template, Pos: i, Reason: "nested '{'"}
			}
			inBrace = true
			t.Literals = append(t.Literals, string(literal))
			literal = literal[:0]
		case '}':
			if !inBrace {
				return nil, &TemplateSyntaxError{Template: template, Pos: i, Reason: "unmatched '}'"}
			}
			if len(path) == 0 {
				return nil, &TemplateSyntaxError{Template: template, Pos: i, Reason: "empty field reference"}
			}
			inBrace = false
			t.Paths = append(t.Paths, string(path))
			path = path[:0]
		default:
			if inBrace {
				path = append(path, c)
			} else {
				literal = append(literal, c)
			}
		}
	}

	if inBrace {
		return nil, &TemplateSyntaxError{Template: template, Pos: len(template), Reason: "unterminated '{'"}
	}

	if len(t.Paths) == 0 {
		// Plain field name shorthand: "name" behaves like "{name}".
		return &Template{Paths: []string{template}, Literals: []string{"", ""}}, nil
	}

	t.Literals = append(t.Literals, string(literal))
	return t, nil
}

// TemplateSyntaxError reports malformed brace syntax in a key template.
type TemplateSyntaxError struct {
	Template string
	Pos      int
	Reason   string
}

func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("template %q: %s at position %d", e.Template, e.Reason, e.Pos)
}
