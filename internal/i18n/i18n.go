package i18n

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Bundle holds the translation catalogs for every supported language.
type Bundle struct {
	bundle     *goi18n.Bundle
	fallback   string
	order      []string
	supported  map[string]struct{}
	matcher    language.Matcher
	localizers map[string]*goi18n.Localizer
}

// Load reads "<lang>.toml" catalogs from fsys. Missing catalogs are tolerated
// for every language except the fallback.
func Load(fsys fs.FS, fallback string, supported []string) (*Bundle, error) {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = "es"
	}
	if len(supported) == 0 {
		supported = []string{"es", "en"}
	}
	fbTag, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("parse fallback locale %s: %w", fallback, err)
	}

	b := &Bundle{
		bundle:     goi18n.NewBundle(fbTag),
		fallback:   fallback,
		supported:  map[string]struct{}{},
		localizers: map[string]*goi18n.Localizer{},
	}
	b.bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	// fallback first so the matcher defaults to it
	langs := append([]string{fallback}, supported...)
	tags := make([]language.Tag, 0, len(langs))
	loadedFallback := false
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, seen := b.supported[l]; seen {
			continue
		}
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", l, err)
		}
		if _, err := b.bundle.LoadMessageFileFS(fsys, l+".toml"); err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load locale %s: %w", l, err)
		}
		if l == fallback {
			loadedFallback = true
		}
		b.supported[l] = struct{}{}
		b.order = append(b.order, l)
		tags = append(tags, tag)
		b.localizers[l] = goi18n.NewLocalizer(b.bundle, l, fallback)
	}
	if !loadedFallback {
		return nil, fmt.Errorf("fallback locale %s not loaded", fallback)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

func (b *Bundle) Supported() []string {
	out := make([]string, 0, len(b.supported))
	for k := range b.supported {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang has a loaded catalog.
func (b *Bundle) IsSupported(lang string) bool {
	_, ok := b.supported[strings.ToLower(lang)]
	return ok
}

func (b *Bundle) localizer(lang string) *goi18n.Localizer {
	if loc, ok := b.localizers[strings.ToLower(lang)]; ok {
		return loc
	}
	return b.localizers[b.fallback]
}

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	msg, err := b.localizer(lang).Localize(&goi18n.LocalizeConfig{MessageID: key})
	if err != nil || msg == "" {
		return key
	}
	return msg
}

// Count renders a message whose template references {{.Count}}. n is
// printed as plain digits with no grouping.
func (b *Bundle) Count(lang, key string, n int) string {
	msg, err := b.localizer(lang).Localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: map[string]any{"Count": n},
	})
	if err != nil || msg == "" {
		return fmt.Sprintf("%d %s", n, key)
	}
	return msg
}

// Resolve chooses best language from Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	acceptLang = strings.TrimSpace(acceptLang)
	if acceptLang == "" {
		return b.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(b.order) {
		return b.fallback
	}
	return b.order[idx]
}
