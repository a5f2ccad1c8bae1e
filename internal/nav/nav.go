package nav

import (
	"net/url"
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/upload"
	LabelKey string // i18n key, e.g. "nav.upload"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Class returns the CSS class of the link.
func (r RenderedItem) Class() string {
	if r.Active {
		return "nav-link active"
	}
	return "nav-link"
}

// ReaderPrefix is the path prefix of reader deep links.
const ReaderPrefix = "/leer/"

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", LabelKey: "nav.library"},
	{Path: "/upload", LabelKey: "nav.upload"},
	{Path: "/etiquetas", LabelKey: "nav.categories"},
	{Path: "/herramientas", LabelKey: "nav.tools"},
	{Path: "/rag", LabelKey: "nav.chat"},
}

// Build renders navigation items with active state given the current path.
// label may be nil, in which case Label is left empty.
func Build(currentPath string, label func(key string) string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		ri := RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		}
		if label != nil {
			ri.Label = label(it.LabelKey)
		}
		items = append(items, ri)
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	// exact or with one trailing slash, "/upload" or "/upload/"
	return strings.TrimSuffix(currentPath, "/") == itemPath
}

// ReaderHref builds the reader link for a book id. The id is escaped as a
// single path segment.
func ReaderHref(bookID string) string {
	return ReaderPrefix + url.PathEscape(bookID)
}
