package middleware

import (
	"encoding/json"
	"net/http"
)

// HTMX marks requests coming from htmx. Responses vary on HX-Request because
// the same route may answer with a fragment or a full page.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "HX-Request")
		is := r.Header.Get("HX-Request") == "true"
		next.ServeHTTP(w, r.WithContext(WithHTMX(r.Context(), is)))
	})
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// writeError answers htmx with JSON and everything else with plain text.
// The request id is echoed so a failed swap can be matched to its log line.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	rid := RequestID(r.Context())
	if rid != "" {
		w.Header().Set("X-Request-ID", rid)
	}
	if IsHTMX(r.Context()) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, RequestID: rid})
		return
	}
	http.Error(w, msg, code)
}
