package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*.html
var templateFiles embed.FS

// pages holds every embedded page, parsed once at start-up.
var pages = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// renderPage executes the named template, turning failures into a 500.
func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		log.Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
