package handlers

import (
	"html/template"

	"finitefield.org/libreria-web/internal/header"
	"finitefield.org/libreria-web/internal/routes"
	"finitefield.org/libreria-web/internal/seo"
)

// PageData is the view model for the shell layout.
type PageData struct {
	Title     string
	Lang      string
	Path      string
	View      routes.View
	CSRFToken string
	SEO       seo.Meta

	Header  header.ViewModel
	Content template.HTML
}
