// Package apicommon holds the request and response helpers shared by the
// HTTP handlers.
package apicommon

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.vocdoni.io/dvote/log"
)

// HTTPWriteJSON helper function allows to write a JSON response.
func HTTPWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// HTTPWriteText writes a 200 plain text response.
func HTTPWriteText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// RequestOrigin returns the public origin (scheme://host) the browser used
// to reach the server. The Origin header wins; otherwise it is rebuilt from
// the proxy headers or the request itself.
func RequestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
		return strings.TrimRight(origin, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if fwdHost := r.Header.Get("X-Forwarded-Host"); fwdHost != "" {
		host = strings.TrimSpace(strings.Split(fwdHost, ",")[0])
	}
	return scheme + "://" + host
}
