package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/libreria-web/internal/handlers"
	"finitefield.org/libreria-web/internal/header"
	"finitefield.org/libreria-web/internal/i18n"
	mw "finitefield.org/libreria-web/internal/middleware"
	"finitefield.org/libreria-web/internal/observability"
	"finitefield.org/libreria-web/internal/routes"
	"finitefield.org/libreria-web/internal/seo"
	"finitefield.org/libreria-web/internal/views"
)

// server holds everything the HTTP handlers need.
type server struct {
	logger   *zap.Logger
	bundle   *i18n.Bundle
	table    *routes.Table
	views    *views.Registry
	header   *header.Header
	sessions *mw.SessionStore
	assets   fs.FS

	// templates are re-parsed from templateFS on each request in dev mode
	templateFS fs.FS
	devMode    bool
	tmplOnce   sync.Once
	tmplCache  *template.Template
	tmplErr    error
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/assets/*", http.StripPrefix("/assets", mw.AssetsWithCache(s.assets)))

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(s.sessions.Session)
		r.Use(mw.Locale(s.bundle))
		r.Use(s.sessions.CSRF)
		r.Use(mw.VaryLocale)

		r.Get("/header/counter", s.counterFragment)
		r.Post("/header/menu", s.toggleMenu)
		r.Get("/", s.page)
		r.Get("/*", s.page)
	})
	return r
}

// page dispatches the request path. Every navigation closes the menu.
func (s *server) page(w http.ResponseWriter, r *http.Request) {
	sd := mw.GetSession(r)
	menu := header.Menu{Open: sd.MenuOpen}.Apply(header.LinkActivated)
	sd.SetMenuOpen(menu.Open)
	s.renderPage(w, r, r.URL.Path, menu)
}

// toggleMenu flips the menu. htmx gets the header back; a plain form post gets
// the page it came from, re-rendered with the new menu state.
func (s *server) toggleMenu(w http.ResponseWriter, r *http.Request) {
	sd := mw.GetSession(r)
	menu := header.Menu{Open: sd.MenuOpen}.Apply(header.ToggleMenu)
	sd.SetMenuOpen(menu.Open)

	path := safeReturnPath(r.PostFormValue("return"))
	if mw.IsHTMX(r.Context()) {
		s.render(w, r, "header", s.pageData(r, path, menu))
		return
	}
	s.renderPage(w, r, path, menu)
}

// counterFragment renders the counter area; ?refresh=1 asks for an extra poll first.
func (s *server) counterFragment(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		if !s.header.Refresh() {
			observability.FromContext(r.Context()).Warn("counter refresh requested while unmounted")
		}
	}
	lang := mw.Lang(r)
	s.render(w, r, "counter", header.CounterViewOf(s.header.Counter(), lang, s.bundle))
}

func (s *server) renderPage(w http.ResponseWriter, r *http.Request, path string, menu header.Menu) {
	data := s.pageData(r, path, menu)
	match := s.table.Dispatch(path)
	data.View = match.View
	intro := s.views.Intro(match.View, data.Lang)
	data.SEO = seo.Page(data.Header.Title, intro.Title, intro.Summary, path, data.Lang)
	data.Title = data.SEO.Title

	var content bytes.Buffer
	if err := s.views.Render(r.Context(), &content, match, data.Lang); err != nil {
		observability.FromContext(r.Context()).Error("render view", zap.String("view", string(match.View)), zap.Error(err))
		http.Error(w, fmt.Sprintf("view render error: %v", err), http.StatusInternalServerError)
		return
	}
	data.Content = template.HTML(content.String())
	s.render(w, r, "base", data)
}

func (s *server) pageData(r *http.Request, path string, menu header.Menu) handlers.PageData {
	lang := mw.Lang(r)
	vm := s.header.View(menu, path, lang, s.bundle)
	return handlers.PageData{
		Title:     vm.Title,
		Lang:      lang,
		Path:      path,
		CSRFToken: mw.CSRFToken(r),
		Header:    vm,
	}
}

func safeReturnPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return "/"
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return p
}

func (s *server) templates() (*template.Template, error) {
	if s.devMode {
		return parseTemplates(s.templateFS)
	}
	s.tmplOnce.Do(func() {
		s.tmplCache, s.tmplErr = parseTemplates(s.templateFS)
	})
	return s.tmplCache, s.tmplErr
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	// ParseFS does not support **, so collect files first
	var files []string
	if err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return template.New("_root").ParseFS(fsys, files...)
}

// render executes a named template into a buffer so a failure never leaves a half-written page.
func (s *server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, err := s.templates()
	if err != nil {
		http.Error(w, fmt.Sprintf("template parse error: %v", err), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		observability.FromContext(r.Context()).Error("execute template", zap.String("template", name), zap.Error(err))
		http.Error(w, fmt.Sprintf("template exec error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
