// Package header builds the persistent page header: title, collapsible
// navigation and the live book counter.
package header

import (
	"context"

	"finitefield.org/libreria-web/internal/counter"
	"finitefield.org/libreria-web/internal/nav"
)

const (
	keyTitle        = "header.title"
	keyMenu         = "header.menu"
	keyCount        = "header.count"
	keyCounterError = "header.counter_error"
)

// Translator resolves message keys for a language.
type Translator interface {
	T(lang, key string) string
	Count(lang, key string, n int) string
}

// Header owns the counter poller for the lifetime of the process.
type Header struct {
	poller *counter.Poller
}

// New wraps an unmounted poller.
func New(poller *counter.Poller) *Header {
	return &Header{poller: poller}
}

// Mount starts polling.
func (h *Header) Mount(ctx context.Context) error { return h.poller.Mount(ctx) }

// Unmount stops polling and waits for the poller to exit.
func (h *Header) Unmount() { h.poller.Unmount() }

// Refresh requests an extra poll.
func (h *Header) Refresh() bool { return h.poller.Refresh() }

// Counter returns the current counter snapshot.
func (h *Header) Counter() counter.State { return h.poller.State() }

// CounterView is the rendered counter area.
type CounterView struct {
	Phase     string
	ShowCount bool
	CountText string
	ShowError bool
	ErrorText string
}

// ViewModel is everything the header template needs.
type ViewModel struct {
	Title     string
	MenuLabel string
	MenuOpen  bool
	NavClass  string
	Links     []nav.RenderedItem
	Counter   CounterView
}

// View builds the header for one request.
func (h *Header) View(menu Menu, currentPath, lang string, tr Translator) ViewModel {
	return ViewModel{
		Title:     tr.T(lang, keyTitle),
		MenuLabel: tr.T(lang, keyMenu),
		MenuOpen:  menu.Open,
		NavClass:  menu.NavClass(),
		Links: nav.Build(currentPath, func(key string) string {
			return tr.T(lang, key)
		}),
		Counter: CounterViewOf(h.Counter(), lang, tr),
	}
}

// CounterViewOf renders a counter snapshot. Loading and Loaded(0) render nothing.
func CounterViewOf(s counter.State, lang string, tr Translator) CounterView {
	v := CounterView{
		Phase:     s.Phase.String(),
		ShowCount: s.ShowCount(),
		ShowError: s.ShowError(),
	}
	if v.ShowCount {
		v.CountText = tr.Count(lang, keyCount, s.Count)
	}
	if v.ShowError {
		v.ErrorText = tr.T(lang, keyCounterError)
	}
	return v
}
