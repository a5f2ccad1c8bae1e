package nav

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMarksActiveLink(t *testing.T) {
	t.Parallel()

	items := Build("/etiquetas", nil)
	require.Len(t, items, 5)
	for _, it := range items {
		require.Equal(t, it.Href == "/etiquetas", it.Active, "href %s", it.Href)
	}
	require.Equal(t, "nav-link active", items[2].Class())
	require.Equal(t, "nav-link", items[0].Class())
}

func TestBuildRootOnlyActiveOnRoot(t *testing.T) {
	t.Parallel()

	require.True(t, Build("", nil)[0].Active)
	require.True(t, Build("/", nil)[0].Active)
	for _, it := range Build("/leer/12", nil) {
		require.False(t, it.Active, "reader pages highlight no static link")
	}
	require.True(t, Build("/upload/", nil)[1].Active)
}

func TestBuildTranslatesLabels(t *testing.T) {
	t.Parallel()

	items := Build("/", func(key string) string { return "[" + key + "]" })
	require.Equal(t, "[nav.library]", items[0].Label)
	require.Equal(t, "[nav.chat]", items[4].Label)
}

func TestReaderHref(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/leer/123", ReaderHref("123"))
	require.Equal(t, "/leer/null", ReaderHref("null"))
	require.Equal(t, "/leer/a%2Fb", ReaderHref("a/b"))
}
