package i18n

import (
	"testing"

	"finitefield.org/libreria-web/locales"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load(locales.FS, "es", []string{"es", "en"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := loadBundle(t)
	got := b.Resolve("es;q=0.8, en;q=0.9")
	if got != "en" {
		t.Fatalf("expected en, got %s", got)
	}
}

func TestResolveFallsBackForUnsupported(t *testing.T) {
	b := loadBundle(t)
	for _, header := range []string{"", "fr", "de-DE,fr;q=0.5", "not a header;;"} {
		if got := b.Resolve(header); got != "es" {
			t.Fatalf("Resolve(%q) = %s, want es", header, got)
		}
	}
	if got := b.Resolve("en-US,en;q=0.9"); got != "en" {
		t.Fatalf("expected regional english to resolve to en, got %s", got)
	}
}

func TestTranslateFallsBackToDefaultThenKey(t *testing.T) {
	b := loadBundle(t)
	if got := b.T("es", "nav.library"); got != "Mi Biblioteca" {
		t.Fatalf("unexpected es label %q", got)
	}
	if got := b.T("en", "nav.library"); got != "My Library" {
		t.Fatalf("unexpected en label %q", got)
	}
	if got := b.T("pt", "nav.upload"); got != "Añadir Libro" {
		t.Fatalf("unsupported language should use fallback, got %q", got)
	}
	if got := b.T("es", "missing.key"); got != "missing.key" {
		t.Fatalf("missing key should echo key, got %q", got)
	}
}

func TestCountUsesPlainDigitsAndFixedSuffix(t *testing.T) {
	b := loadBundle(t)
	cases := map[int]string{
		1:       "1 libros en la biblioteca",
		10:      "10 libros en la biblioteca",
		1000:    "1000 libros en la biblioteca",
		12345:   "12345 libros en la biblioteca",
		1234567: "1234567 libros en la biblioteca",
	}
	for n, want := range cases {
		if got := b.Count("es", "header.count", n); got != want {
			t.Fatalf("Count(%d) = %q, want %q", n, got, want)
		}
	}
	if got := b.Count("en", "header.count", 3); got != "3 books in the library" {
		t.Fatalf("unexpected en count %q", got)
	}
}

func TestLoadRequiresFallbackCatalog(t *testing.T) {
	if _, err := Load(locales.FS, "ja", []string{"ja", "en"}); err == nil {
		t.Fatalf("expected error when fallback catalog is missing")
	}
}
