// Package seo builds the head metadata of shell pages.
package seo

import (
	"encoding/json"
	"html/template"
	"strings"
)

type OpenGraph struct {
	Title       string
	Description string
	Type        string
	SiteName    string
	Locale      string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	OG          OpenGraph
	JSONLD      []template.JS
}

// Page builds metadata for one dispatched view. The document title is
// "<page> | <site>", or just the site name when both are equal or page is empty.
func Page(siteName, pageTitle, description, path, lang string) Meta {
	title := siteName
	if pageTitle != "" && pageTitle != siteName {
		title = pageTitle + " | " + siteName
	}
	if path == "" {
		path = "/"
	}
	m := Meta{
		Title:       title,
		Description: description,
		Canonical:   path,
		OG: OpenGraph{
			Title:       title,
			Description: description,
			Type:        "website",
			SiteName:    siteName,
			Locale:      strings.ReplaceAll(lang, "-", "_"),
		},
	}
	if js := JSON(WebPage(title, description, path, lang)); js != "" {
		m.JSONLD = append(m.JSONLD, template.JS(js))
	}
	return m
}

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WebPage returns a minimal WebPage schema.
func WebPage(name, description, url, lang string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebPage",
		"name":     name,
	}
	if description != "" {
		m["description"] = description
	}
	if url != "" {
		m["url"] = url
	}
	if lang != "" {
		m["inLanguage"] = lang
	}
	return m
}
