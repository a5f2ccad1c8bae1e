package counter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	defaultFetchTimeout = 8 * time.Second
	maxBodyBytes        = 64 << 10
	requestIDHeader     = "X-Request-ID"
)

// Fetcher retrieves the current book count.
type Fetcher interface {
	FetchCount(ctx context.Context) (int, error)
}

// FetcherFunc adapts ordinary functions to Fetcher.
type FetcherFunc func(ctx context.Context) (int, error)

// FetchCount calls f.
func (f FetcherFunc) FetchCount(ctx context.Context) (int, error) { return f(ctx) }

// HTTPFetcher issues a GET against the count endpoint.
type HTTPFetcher struct {
	endpoint string
	http     *http.Client
}

// NewHTTPFetcher builds a fetcher for endpoint. A nil client gets a default
// client with an 8s timeout.
func NewHTTPFetcher(endpoint string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &HTTPFetcher{
		endpoint: strings.TrimSpace(endpoint),
		http:     client,
	}
}

// Endpoint returns the configured URL.
func (f *HTTPFetcher) Endpoint() string { return f.endpoint }

// FetchCount performs one request. Failures are returned as *TransportError,
// *HTTPStatusError or *DecodeError.
func (f *HTTPFetcher) FetchCount(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return 0, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestIDFromContext(ctx))

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &HTTPStatusError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	return decodeCount(body)
}

// decodeCount accepts `10` or `{"count": 10}`.
func decodeCount(body []byte) (int, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return 0, &DecodeError{Reason: "empty body"}
	}
	if !gjson.ValidBytes(body) {
		return 0, &DecodeError{Reason: "invalid json"}
	}
	result := gjson.ParseBytes(body)
	switch {
	case result.Type == gjson.Number:
		return parseCount(result)
	case result.IsObject():
		field := result.Get("count")
		if !field.Exists() {
			return 0, &DecodeError{Reason: "object has no count"}
		}
		if field.Type != gjson.Number {
			return 0, &DecodeError{Reason: "count is not a number"}
		}
		return parseCount(field)
	default:
		return 0, &DecodeError{Reason: "unexpected shape " + result.Type.String()}
	}
}

func parseCount(r gjson.Result) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(r.Raw), 10, 0)
	if err != nil {
		return 0, &DecodeError{Reason: "count is not an integer", Err: err}
	}
	if n < 0 {
		return 0, &DecodeError{Reason: "negative count"}
	}
	return int(n), nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

type requestIDKey struct{}

// WithRequestID tags ctx so the outgoing request carries id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
