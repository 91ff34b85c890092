package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"recolookup/internal/logging"
)

// Template names
const (
	indexTemplate = "index.html"
	aboutTemplate = "about.html"
)

var funcMap = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
		if len(pairs)%2 != 0 {
			return nil, fmt.Errorf("dict needs key/value pairs, got %d args", len(pairs))
		}
		m := make(map[string]interface{}, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
			}
			m[key] = pairs[i+1]
		}
		return m, nil
	},
}

// renderTemplate executes into a buffer first so a failing template never
// leaves a half-written page
func (a *App) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("error writing template response")
	}
}

func renderMarkdown(fsys fs.FS, name string) (template.HTML, error) {
	md, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})

	// content is embedded at build time
	return template.HTML(markdown.Render(p.Parse(md), renderer)), nil
}
