package engine

import (
	"errors"
	"testing"
)

func TestParseTemplate_Empty(t *testing.T) {
	tmpl, err := ParseTemplate("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tmpl.Paths) != 0 {
		t.Fatalf("expected no paths, got %v", tmpl.Paths)
	}
	if len(tmpl.Literals) != 1 || tmpl.Literals[0] != "" {
		t.Fatalf("expected single empty literal, got %v", tmpl.Literals)
	}
}

func TestParseTemplate_PlainNameIsPath(t *testing.T) {
	tmpl, err := ParseTemplate("nombre")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tmpl.Paths) != 1 || tmpl.Paths[0] != "nombre" {
		t.Fatalf("expected path [nombre], got %v", tmpl.Paths)
	}
	if len(tmpl.Literals) != 2 || tmpl.Literals[0] != "" || tmpl.Literals[1] != "" {
		t.Fatalf("expected empty surrounding literals, got %v", tmpl.Literals)
	}
}

func TestParseTemplate_SinglePath(t *testing.T) {
	tmpl, err := ParseTemplate("{presidente.nombre}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tmpl.Paths) != 1 || tmpl.Paths[0] != "presidente.nombre" {
		t.Fatalf("expected path [presidente.nombre], got %v", tmpl.Paths)
	}
}

func TestParseTemplate_LiteralsAndPaths(t *testing.T) {
	tmpl, err := ParseTemplate("Sr. {nombre} {apellido}, presidente")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantPaths := []string{"nombre", "apellido"}
	wantLits := []string{"Sr. ", " ", ", presidente"}
	if len(tmpl.Paths) != len(wantPaths) {
		t.Fatalf("expected %d paths, got %v", len(wantPaths), tmpl.Paths)
	}
	for i, p := range wantPaths {
		if tmpl.Paths[i] != p {
			t.Fatalf("path %d: expected %q, got %q", i, p, tmpl.Paths[i])
		}
	}
	if len(tmpl.Literals) != len(wantLits) {
		t.Fatalf("expected %d literals, got %v", len(wantLits), tmpl.Literals)
	}
	for i, l := range wantLits {
		if tmpl.Literals[i] != l {
			t.Fatalf("literal %d: expected %q, got %q", i, l, tmpl.Literals[i])
		}
	}
}

func TestParseTemplate_SyntaxErrors(t *testing.T) {
	cases := []struct {
		template string
		reason   string
	}{
		{"{a{b}", "nested '{'"},
		{"a}b", "unmatched '}'"},
		{"{}", "empty field reference"},
		{"{nombre", "unterminated '{'"},
	}
	for _, tc := range cases {
		_, err := ParseTemplate(tc.template)
		if err == nil {
			t.Fatalf("expected error for %q", tc.template)
		}
		var serr *TemplateSyntaxError
		if !errors.As(err, &serr) {
			t.Fatalf("expected TemplateSyntaxError for %q, got %T", tc.template, err)
		}
		if serr.Reason != tc.reason {
			t.Fatalf("template %q: expected reason %q, got %q", tc.template, tc.reason, serr.Reason)
		}
	}
}
