package header

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/libreria-web/internal/counter"
	"finitefield.org/libreria-web/internal/i18n"
	"finitefield.org/libreria-web/locales"
)

func loadBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.Load(locales.FS, "es", []string{"es", "en"})
	require.NoError(t, err)
	return b
}

func TestMenuToggleAndLinkActivation(t *testing.T) {
	t.Parallel()

	var m Menu
	require.False(t, m.Open)
	require.Equal(t, "header-nav", m.NavClass())

	m = m.Apply(ToggleMenu)
	require.True(t, m.Open)
	require.Equal(t, "header-nav open", m.NavClass())

	require.False(t, m.Apply(ToggleMenu).Open, "toggling twice returns to closed")
	require.False(t, m.Apply(LinkActivated).Open, "navigation closes the menu")
	require.False(t, Menu{}.Apply(LinkActivated).Open)
}

func TestCounterViewPolicy(t *testing.T) {
	t.Parallel()

	b := loadBundle(t)

	v := CounterViewOf(counter.Initial(), "es", b)
	require.False(t, v.ShowCount)
	require.False(t, v.ShowError)
	require.Equal(t, "loading", v.Phase)

	v = CounterViewOf(counter.State{Phase: counter.Loaded, Count: 10}, "es", b)
	require.True(t, v.ShowCount)
	require.Equal(t, "10 libros en la biblioteca", v.CountText)

	for _, n := range []int{1, 1000, 12345} {
		v = CounterViewOf(counter.State{Phase: counter.Loaded, Count: n}, "es", b)
		require.Equal(t, strconv.Itoa(n)+" libros en la biblioteca", v.CountText)
	}

	v = CounterViewOf(counter.State{Phase: counter.Loaded}, "es", b)
	require.False(t, v.ShowCount)
	require.Empty(t, v.CountText)
	require.False(t, v.ShowError)

	v = CounterViewOf(counter.State{Phase: counter.Failed, Err: errors.New("x")}, "es", b)
	require.False(t, v.ShowCount)
	require.True(t, v.ShowError)
	require.Equal(t, "No se pudo cargar el contador de libros. Inténtalo de nuevo más tarde.", v.ErrorText)
}

func TestHeaderViewCombinesMenuLinksAndCounter(t *testing.T) {
	t.Parallel()

	b := loadBundle(t)
	h := New(counter.NewPoller(counter.FetcherFunc(func(context.Context) (int, error) {
		return 42, nil
	}), counter.WithInterval(time.Hour)))
	require.NoError(t, h.Mount(context.Background()))
	t.Cleanup(h.Unmount)

	require.Eventually(t, func() bool {
		return h.Counter().Phase == counter.Loaded
	}, 2*time.Second, 10*time.Millisecond)

	vm := h.View(Menu{Open: true}, "/rag", "es", b)
	require.Equal(t, "📚 Librería Inteligente", vm.Title)
	require.True(t, vm.MenuOpen)
	require.Equal(t, "header-nav open", vm.NavClass)
	require.Len(t, vm.Links, 5)
	require.Equal(t, "Charla sobre libros con la IA", vm.Links[4].Label)
	require.True(t, vm.Links[4].Active)
	require.Equal(t, "42 libros en la biblioteca", vm.Counter.CountText)

	en := h.View(Menu{}, "/", "en", b)
	require.Equal(t, "📚 Smart Library", en.Title)
	require.Equal(t, "42 books in the library", en.Counter.CountText)
	require.True(t, h.Refresh())
}
