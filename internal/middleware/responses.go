package middleware

import (
	"html/template"
	"net/http"
)

// writeError answers htmx requests with a swappable fragment and everything else with plain text.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if IsHTMX(r.Context()) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("HX-Reswap", "innerHTML")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`<div class="error-message" role="alert">` + template.HTMLEscapeString(msg) + `</div>`))
		return
	}
	http.Error(w, msg, code)
}
