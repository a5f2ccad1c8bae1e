// Package views holds the components the dispatcher renders below the header.
// Each component is opaque to the router: it receives the optional book
// identifier and the request language and writes its own markup.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"finitefield.org/libreria-web/internal/nav"
	"finitefield.org/libreria-web/internal/routes"
)

//go:embed content/*.md
var contentFS embed.FS

// ContentFS returns the embedded view intros.
func ContentFS() fs.FS {
	sub, err := fs.Sub(contentFS, "content")
	if err != nil {
		panic(err)
	}
	return sub
}

// Input is what the dispatcher forwards to a component.
type Input struct {
	Lang      string
	BookID    string
	HasBookID bool
}

// Component renders one view.
type Component interface {
	Render(ctx context.Context, w io.Writer, in Input) error
}

// Translator resolves message keys for a language.
type Translator interface {
	T(lang, key string) string
}

// Intro is the localized heading and body of a view.
type Intro struct {
	Title   string
	Summary string
	Body    template.HTML
}

type introFrontMatter struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
}

// Registry maps dispatcher views to components.
type Registry struct {
	components map[routes.View]Component
	fallback   routes.View
}

// NewRegistry loads intros from content (files named <view>.<lang>.md) and
// builds a component for every view of the default route table.
func NewRegistry(content fs.FS, tr Translator, fallbackLang string) (*Registry, error) {
	intros, err := loadIntros(content)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		components: map[routes.View]Component{},
		fallback:   routes.ViewLibrary,
	}
	for _, v := range []routes.View{routes.ViewLibrary, routes.ViewUpload, routes.ViewCategories, routes.ViewTools, routes.ViewChat} {
		r.components[v] = &placeholder{view: v, intros: intros[v], tr: tr, fallbackLang: fallbackLang}
	}
	r.components[routes.ViewReader] = &reader{
		placeholder: placeholder{view: routes.ViewReader, intros: intros[routes.ViewReader], tr: tr, fallbackLang: fallbackLang},
	}
	return r, nil
}

// Register replaces the component for v.
func (r *Registry) Register(v routes.View, c Component) {
	r.components[v] = c
}

// Lookup returns the component for v, or the fallback view's component.
func (r *Registry) Lookup(v routes.View) Component {
	if c, ok := r.components[v]; ok {
		return c
	}
	return r.components[r.fallback]
}

// Intro returns the localized intro of v. Views without an intro file get
// their title from the message catalog.
func (r *Registry) Intro(v routes.View, lang string) Intro {
	type introducer interface {
		data(lang string) viewData
	}
	c, ok := r.Lookup(v).(introducer)
	if !ok {
		return Intro{}
	}
	d := c.data(lang)
	return Intro{Title: d.Title, Summary: d.Summary, Body: d.Body}
}

// Render writes the view selected by m.
func (r *Registry) Render(ctx context.Context, w io.Writer, m routes.Match, lang string) error {
	return r.Lookup(m.View).Render(ctx, w, Input{Lang: lang, BookID: m.Param, HasBookID: m.HasParam})
}

var sanitizer = bluemonday.UGCPolicy()

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func loadIntros(content fs.FS) (map[routes.View]map[string]Intro, error) {
	files, err := fs.Glob(content, "*.md")
	if err != nil {
		return nil, err
	}
	out := map[routes.View]map[string]Intro{}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".md")
		view, lang, ok := strings.Cut(name, ".")
		if !ok || view == "" || lang == "" {
			continue
		}
		raw, err := fs.ReadFile(content, file)
		if err != nil {
			return nil, fmt.Errorf("views: read %s: %w", file, err)
		}
		intro, err := parseIntro(raw)
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", file, err)
		}
		v := routes.View(view)
		if out[v] == nil {
			out[v] = map[string]Intro{}
		}
		out[v][strings.ToLower(lang)] = intro
	}
	return out, nil
}

func parseIntro(raw []byte) (Intro, error) {
	fm, body := splitFrontMatter(string(raw))
	front := introFrontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Intro{}, fmt.Errorf("front matter: %w", err)
		}
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return Intro{}, fmt.Errorf("markdown: %w", err)
	}
	return Intro{
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Body:    template.HTML(sanitizer.SanitizeBytes(buf.Bytes())),
	}, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n\r")
		}
	}
	return "", input
}

var viewTmpl = template.Must(template.New("view").Parse(`<section class="view view-{{.View}}" data-view="{{.View}}">
<h1 class="view-title">{{.Title}}</h1>
{{- if .Summary}}
<p class="view-summary">{{.Summary}}</p>
{{- end}}
{{- if .HasBookID}}
<p class="view-book">{{.BookLabel}}: <span class="book-id" data-book-id="{{.BookID}}">{{.BookID}}</span></p>
<a class="book-link" href="{{.BookHref}}">{{.BookHref}}</a>
{{- end}}
{{- if .Body}}
<div class="view-intro">{{.Body}}</div>
{{- end}}
</section>
`))

type viewData struct {
	View      routes.View
	Title     string
	Summary   string
	Body      template.HTML
	HasBookID bool
	BookID    string
	BookLabel string
	BookHref  string
}

// placeholder stands in for a view whose content lives outside this shell.
type placeholder struct {
	view         routes.View
	intros       map[string]Intro
	tr           Translator
	fallbackLang string
}

func (p *placeholder) intro(lang string) Intro {
	if in, ok := p.intros[strings.ToLower(lang)]; ok {
		return in
	}
	return p.intros[p.fallbackLang]
}

func (p *placeholder) data(lang string) viewData {
	in := p.intro(lang)
	title := in.Title
	if title == "" && p.tr != nil {
		title = p.tr.T(lang, "view."+string(p.view))
	}
	return viewData{View: p.view, Title: title, Summary: in.Summary, Body: in.Body}
}

func (p *placeholder) Render(_ context.Context, w io.Writer, in Input) error {
	return viewTmpl.Execute(w, p.data(in.Lang))
}

// reader receives the book identifier verbatim and only displays it.
type reader struct {
	placeholder
}

func (r *reader) Render(_ context.Context, w io.Writer, in Input) error {
	d := r.data(in.Lang)
	if in.HasBookID {
		d.HasBookID = true
		d.BookID = in.BookID
		d.BookHref = nav.ReaderHref(in.BookID)
		if r.tr != nil {
			d.BookLabel = r.tr.T(in.Lang, "view.reader_book")
		}
	}
	return viewTmpl.Execute(w, d)
}
