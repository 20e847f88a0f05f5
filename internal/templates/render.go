// Package templates renders the HTML fragments patched into the viewer page.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
)

//go:embed fragments/*.html
var embedded embed.FS

var funcMap = template.FuncMap{
	// percent turns a 0-1 opacity into a whole percentage.
	"percent": func(opacity float64) int { return int(opacity*100 + 0.5) },
}

// Renderer executes named fragment templates.
type Renderer struct {
	templates *template.Template
}

// Default renders the fragments built into the binary.
func Default() (*Renderer, error) {
	return New("")
}

// New parses the built-in fragments, then the *.html files of overrideDir
// on top, so a definition there replaces the built-in one of the same name.
// An empty overrideDir uses the built-in fragments only.
func New(overrideDir string) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(embedded, "fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse fragments: %w", err)
	}
	if overrideDir != "" {
		dir := os.DirFS(overrideDir)
		matches, err := fs.Glob(dir, "*.html")
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no fragments in %s", overrideDir)
		}
		if tmpl, err = tmpl.ParseFS(dir, "*.html"); err != nil {
			return nil, fmt.Errorf("parse fragments in %s: %w", overrideDir, err)
		}
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes the named template into a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer executes the named template into buf.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	return r.templates.ExecuteTemplate(buf, name, data)
}
