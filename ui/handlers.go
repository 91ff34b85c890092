package ui

import (
	"html/template"
	"net/http"

	"recolookup/app"
)

// pageData feeds index.html and about.html
type pageData struct {
	Title    string
	Query    string
	Searched bool
	Result   *app.SearchResult
	Tables   []app.LoadOutcome
	About    template.HTML
}

// handleIndex renders the empty search form
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, r, indexTemplate, pageData{
		Title:  "Recommendation Lookup",
		Tables: a.service.Status(),
	})
}

// handleSearch runs one search and renders the form with both result panels.
// Every request starts from a clean page; nothing from earlier searches is kept.
func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	key, ok := r.URL.Query()["item_id"]
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	query := ""
	if len(key) > 0 {
		query = key[0]
	}
	result := a.service.Search(r.Context(), query)

	a.renderTemplate(w, r, indexTemplate, pageData{
		Title:    "Recommendation Lookup",
		Query:    query,
		Searched: true,
		Result:   &result,
		Tables:   a.service.Status(),
	})
}

// handleAbout renders the embedded project notes
func (a *App) handleAbout(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, r, aboutTemplate, pageData{
		Title: "About",
		About: a.about,
	})
}
