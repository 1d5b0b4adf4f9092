package app

import (
	"embed"
	"fmt"
	"html/template"
)

// templateFS contains the HTML templates bundled with the binary.
//
//go:embed templates/*
var templateFS embed.FS

var pageTemplates = []string{
	"home.gohtml",
	"entry.gohtml",
	"category.gohtml",
	"top-stories.gohtml",
	"search.gohtml",
	"getting-started.gohtml",
	"premium.gohtml",
	"signin.gohtml",
	"error.gohtml",
	"loading.gohtml",
}

// parseTemplates builds one template set per page, each sharing the layout
// and partials.
func parseTemplates(funcs template.FuncMap) (map[string]*template.Template, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.gohtml", "templates/partials.gohtml")
	if err != nil {
		return nil, err
	}

	set := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		tmpl, err := clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		set[name] = tmpl
	}
	return set, nil
}
