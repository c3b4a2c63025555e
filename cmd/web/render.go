package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/format"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/observability"
)

func (a *app) funcMap() template.FuncMap {
	return template.FuncMap{
		"t":        a.t,
		"dir":      i18n.Direction,
		"markdown": format.Markdown,
		"excerpt":  format.Excerpt,
		// hxVals encodes key/value pairs as the JSON object htmx expects in hx-vals.
		"hxVals": func(kv ...string) (string, error) {
			if len(kv)%2 != 0 {
				return "", fmt.Errorf("hxVals: odd argument count")
			}
			m := make(map[string]string, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				m[kv[i]] = kv[i+1]
			}
			b, err := json.Marshal(m)
			return string(b), err
		},
	}
}

func (a *app) parseTemplates() (*template.Template, error) {
	dir := a.cfg.Server.TemplatesDir
	// Recursively discover and parse all .tmpl files. Note: ParseGlob doesn't support **.
	var files []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", dir)
	}
	return template.New("_root").Funcs(a.funcMap()).ParseFiles(files...)
}

// templates returns the parsed set. In dev mode, templates are reparsed on each request.
func (a *app) templates() (*template.Template, error) {
	if a.cfg.Server.Dev || a.tmplCache == nil {
		return a.parseTemplates()
	}
	return a.tmplCache, nil
}

// renderPage executes the base layout.
func (a *app) renderPage(w http.ResponseWriter, r *http.Request, data any) {
	a.renderTemplate(w, r, "base", data)
}

// renderTemplate executes a named template into a buffer so a failure never leaves a half-written response.
func (a *app) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, err := a.templates()
	if err != nil {
		observability.FromContext(r.Context()).Error("template parse failed", zap.Error(err))
		http.Error(w, "template parse error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		observability.FromContext(r.Context()).Error("template exec failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderFragments writes several fragments into one response, e.g. a target swap plus out-of-band swaps.
func (a *app) renderFragments(w http.ResponseWriter, r *http.Request, parts ...fragment) {
	t, err := a.templates()
	if err != nil {
		observability.FromContext(r.Context()).Error("template parse failed", zap.Error(err))
		http.Error(w, "template parse error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	for _, p := range parts {
		if err := t.ExecuteTemplate(&buf, p.name, p.data); err != nil {
			observability.FromContext(r.Context()).Error("template exec failed", zap.String("template", p.name), zap.Error(err))
			http.Error(w, "template exec error", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type fragment struct {
	name string
	data any
}
