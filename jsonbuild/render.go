package jsonbuild

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/*
var bindingTemplates embed.FS

func loadTemplateFromEmbedded(funcs template.FuncMap) (*template.Template, error) {
	t := template.New("gojson.template.render").Funcs(sprig.TxtFuncMap())
	if len(funcs) > 0 {
		t = t.Funcs(funcs)
	}
	t, err := t.ParseFS(bindingTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse error in template: %w", err)
	}
	return t, nil
}

// renderNamedTemplate executes a Go text template by name from those defined
// in templates/*.tmpl, passing in v.
func renderNamedTemplate(t *template.Template, name string, v interface{}) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot render a nil template")
	}
	if name == "" {
		return nil, fmt.Errorf("template name must be specified")
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, v); err != nil {
		return nil, fmt.Errorf("unable to render template: %w", err)
	}
	return buf.Bytes(), nil
}
