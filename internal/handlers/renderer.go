package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/analytics"
)

//go:embed templates/*
var templatesFS embed.FS

// pages are rendered inside layout.html; login.html stands alone
var pages = []string{"movies.html", "analytics.html"}

// Renderer handles template rendering
type Renderer struct {
	templates map[string]*template.Template
	logger    zerolog.Logger
}

var funcMap = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"toJSON": func(v interface{}) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
	"rating": func(r *float64) string {
		if r == nil {
			return "n/a"
		}
		return strconv.FormatFloat(*r, 'f', 1, 64)
	},
	"records": func(e analytics.Extremum) []analytics.Summary {
		if e == nil {
			return nil
		}
		return e.Records()
	},
}

// NewRenderer parses every page template up front
func NewRenderer(logger zerolog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages)+1)

	login, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login.html: %w", err)
	}
	templates["login.html"] = login

	for _, name := range pages {
		// One set per page so pages can define the same blocks
		tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Renderer{templates: templates, logger: logger}, nil
}

// Render renders a template with data
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

// RenderPage renders a page template and handles errors
func (r *Renderer) RenderPage(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
