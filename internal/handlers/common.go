// Package handlers provides HTTP handlers for the Titan Trading frontend.
package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
)

// TemplateCache maps page names to parsed templates.
type TemplateCache map[string]*template.Template

// render renders a template with the given data.
func render(log *slog.Logger, templates TemplateCache, w http.ResponseWriter, name string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}

	tmpl, ok := templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Error("render template", "template", name, "error", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}
