// Package routes maps request paths to the view that should fill the page
// body. Matching is pure: a Table holds no state beyond its declarations.
package routes

import (
	"errors"
	"fmt"
	"strings"
)

// View identifies a page body component.
type View string

const (
	ViewLibrary    View = "library"
	ViewUpload     View = "upload"
	ViewCategories View = "categories"
	ViewTools      View = "tools"
	ViewChat       View = "chat"
	ViewReader     View = "reader"
)

// Kind distinguishes literal routes from routes with a captured segment.
type Kind int

const (
	KindLiteral Kind = iota
	KindPlaceholder
)

// Route is one declared (pattern, view) pair.
type Route struct {
	Pattern string
	View    View
	Kind    Kind
	// Param is the placeholder name, e.g. "bookId". Empty for literal routes.
	Param string

	segments []string
	paramIdx int
}

// Match is the outcome of matching a path. Unmatched results carry no view.
type Match struct {
	Matched bool
	View    View
	Pattern string
	// Param holds the captured segment verbatim. HasParam is false for literal routes.
	Param    string
	HasParam bool
}

var (
	ErrInvalidPattern   = errors.New("routes: invalid pattern")
	ErrDuplicatePattern = errors.New("routes: duplicate pattern")
)

// Literal declares a route whose every segment must match exactly.
func Literal(pattern string, view View) Route {
	return Route{Pattern: pattern, View: view, Kind: KindLiteral, paramIdx: -1}
}

// Placeholder declares a route with one ":name" segment captured as the param.
func Placeholder(pattern string, view View) Route {
	return Route{Pattern: pattern, View: view, Kind: KindPlaceholder, paramIdx: -1}
}

// Table is an ordered list of routes plus the view used when nothing matches.
type Table struct {
	routes   []Route
	fallback View
}

// NewTable validates the declarations and keeps them in order.
func NewTable(fallback View, routes ...Route) (*Table, error) {
	if fallback == "" {
		return nil, fmt.Errorf("%w: empty fallback view", ErrInvalidPattern)
	}
	seen := make(map[string]struct{}, len(routes))
	out := make([]Route, 0, len(routes))
	for _, r := range routes {
		compiled, err := compile(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[compiled.Pattern]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePattern, compiled.Pattern)
		}
		seen[compiled.Pattern] = struct{}{}
		out = append(out, compiled)
	}
	return &Table{routes: out, fallback: fallback}, nil
}

// MustTable is NewTable for static declarations.
func MustTable(fallback View, routes ...Route) *Table {
	t, err := NewTable(fallback, routes...)
	if err != nil {
		panic(err)
	}
	return t
}

func compile(r Route) (Route, error) {
	if r.View == "" {
		return Route{}, fmt.Errorf("%w: %q has no view", ErrInvalidPattern, r.Pattern)
	}
	if !strings.HasPrefix(r.Pattern, "/") {
		return Route{}, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, r.Pattern)
	}
	r.segments = splitPath(r.Pattern)
	r.paramIdx = -1
	for i, seg := range r.segments {
		if seg == "" {
			return Route{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, r.Pattern)
		}
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		if r.Kind != KindPlaceholder {
			return Route{}, fmt.Errorf("%w: literal route %q contains a placeholder", ErrInvalidPattern, r.Pattern)
		}
		if r.paramIdx != -1 {
			return Route{}, fmt.Errorf("%w: %q has more than one placeholder", ErrInvalidPattern, r.Pattern)
		}
		if len(seg) == 1 {
			return Route{}, fmt.Errorf("%w: %q has an unnamed placeholder", ErrInvalidPattern, r.Pattern)
		}
		r.paramIdx = i
		r.Param = seg[1:]
	}
	if r.Kind == KindPlaceholder && r.paramIdx == -1 {
		return Route{}, fmt.Errorf("%w: %q has no placeholder", ErrInvalidPattern, r.Pattern)
	}
	return r, nil
}

// splitPath returns the segments of a path. The root path has no segments and
// a single trailing slash is ignored.
func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Routes returns a copy of the declarations in order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Fallback returns the view used for unmatched paths.
func (t *Table) Fallback() View { return t.fallback }

// Match returns the first declared route accepting path. It never fails;
// an unknown or incomplete path yields an unmatched result.
func (t *Table) Match(path string) Match {
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	segs := splitPath(path)
	for _, r := range t.routes {
		if m, ok := r.match(segs); ok {
			return m
		}
	}
	return Match{}
}

// Dispatch is Match with the fallback view substituted for unmatched paths.
func (t *Table) Dispatch(path string) Match {
	m := t.Match(path)
	if !m.Matched {
		return Match{Matched: false, View: t.fallback}
	}
	return m
}

func (r Route) match(segs []string) (Match, bool) {
	if len(segs) != len(r.segments) {
		return Match{}, false
	}
	var param string
	for i, want := range r.segments {
		if i == r.paramIdx {
			if segs[i] == "" {
				return Match{}, false
			}
			param = segs[i]
			continue
		}
		if segs[i] != want {
			return Match{}, false
		}
	}
	m := Match{Matched: true, View: r.View, Pattern: r.Pattern}
	if r.Kind == KindPlaceholder {
		m.Param = param
		m.HasParam = true
	}
	return m, true
}

// Default is the shell's route table.
func Default() *Table {
	return MustTable(ViewLibrary,
		Literal("/", ViewLibrary),
		Literal("/upload", ViewUpload),
		Literal("/etiquetas", ViewCategories),
		Literal("/herramientas", ViewTools),
		Literal("/rag", ViewChat),
		Placeholder("/leer/:bookId", ViewReader),
	)
}
