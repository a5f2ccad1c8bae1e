package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	chiMid "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"finitefield.org/libreria-web/internal/i18n"
	"finitefield.org/libreria-web/locales"
)

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionRoundTripsMenuState(t *testing.T) {
	t.Parallel()

	store := NewSessionStore([]byte("test-key"), false)
	h := store.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd := GetSession(r)
		if r.URL.Query().Get("open") == "1" {
			sd.SetMenuOpen(true)
		}
		_, _ = io.WriteString(w, map[bool]string{true: "open", false: "closed"}[sd.MenuOpen])
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?open=1", nil))
	require.Equal(t, "open", rec.Body.String())
	c := cookieNamed(rec, sessionCookieName)
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "open", rec.Body.String())
	require.Nil(t, cookieNamed(rec, sessionCookieName), "an unchanged session is not rewritten")
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	t.Parallel()

	store := NewSessionStore([]byte("test-key"), false)
	other := NewSessionStore([]byte("other-key"), false)

	var id string
	h := other.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetSession(r).SetMenuOpen(true)
		id = GetSession(r).ID
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	forged := cookieNamed(rec, sessionCookieName)
	require.NotNil(t, forged)

	var got *SessionData
	check := store.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSession(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(forged)
	check.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEqual(t, id, got.ID)
	require.False(t, got.MenuOpen)
}

func TestCSRFAcceptsFormFieldAndHeader(t *testing.T) {
	t.Parallel()

	store := NewSessionStore([]byte("test-key"), false)
	h := store.Session(store.CSRF(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, CSRFToken(r))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	token := rec.Body.String()
	require.NotEmpty(t, token)
	session := cookieNamed(rec, sessionCookieName)
	csrf := cookieNamed(rec, csrfCookieName)
	require.NotNil(t, session)
	require.NotNil(t, csrf)
	require.Equal(t, token, csrf.Value)

	post := func(body string, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set(csrfHeaderName, header)
		}
		req.AddCookie(session)
		req.AddCookie(csrf)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, post(url.Values{"_csrf": {token}}.Encode(), ""))
	require.Equal(t, http.StatusOK, post("", token))
	require.Equal(t, http.StatusForbidden, post("", ""))
	require.Equal(t, http.StatusForbidden, post(url.Values{"_csrf": {"nope"}}.Encode(), ""))
}

func TestCSRFErrorIsJSONForHTMX(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(nil, false)
	h := HTMX(store.Session(store.CSRF(http.NotFoundHandler())))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("HX-Request", "true")
	req = req.WithContext(WithRequestID(req.Context(), "host/abc-000001"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid CSRF token", body.Error)
	require.Equal(t, "host/abc-000001", body.RequestID)
	require.Equal(t, "host/abc-000001", rec.Header().Get("X-Request-ID"))
	require.Contains(t, rec.Header().Values("Vary"), "HX-Request")
}

func TestLoggerExposesRequestID(t *testing.T) {
	t.Parallel()

	var got string
	h := chiMid.RequestID(Logger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestID(r.Context())
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, got)

	require.Empty(t, RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestLocaleResolution(t *testing.T) {
	t.Parallel()

	bundle, err := i18n.Load(locales.FS, "es", []string{"es", "en"})
	require.NoError(t, err)
	store := NewSessionStore([]byte("k"), false)
	h := store.Session(Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, Lang(r))
	})))

	serve := func(target, acceptLang string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if acceptLang != "" {
			req.Header.Set("Accept-Language", acceptLang)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, "es", serve("/", "").Body.String())
	require.Equal(t, "en", serve("/", "en-GB").Body.String())
	require.Equal(t, "es", serve("/", "ja").Body.String())

	rec := serve("/?hl=en", "es")
	require.Equal(t, "en", rec.Body.String())
	require.Equal(t, "en", cookieNamed(rec, localeCookieName).Value)
	require.Equal(t, "es", serve("/?hl=xx", "").Body.String(), "unsupported overrides are ignored")
}

func TestAssetsWithCache(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"css/site.css": {Data: []byte("body{}")}}
	h := http.StripPrefix("/assets", AssetsWithCache(fsys))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/css/site.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "body{}", rec.Body.String())
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age=604800")
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))

	req := httptest.NewRequest(http.MethodGet, "/assets/css/site.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
}

func TestResponseRecorderRunsHookOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	rw := NewResponseRecorder(httptest.NewRecorder())
	rw.SetBeforeWrite(func(http.ResponseWriter) { calls++ })
	require.False(t, rw.Wrote())
	rw.WriteHeader(http.StatusTeapot)
	_, _ = rw.Write([]byte("x"))
	require.Equal(t, 1, calls)
	require.Equal(t, http.StatusTeapot, rw.Status())
	require.True(t, rw.Wrote())
}
