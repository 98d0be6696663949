package igvf

import (
	"net/http"
	"os"
	"runtime"
	"strings"
)

// Runtime identifies the process context the client executes in. Requests
// from the portal's server process and requests from the browser runtime go
// through different base URLs and carry different authentication headers.
type Runtime int

const (
	// RuntimeServer means the client runs inside the hosting server process.
	RuntimeServer Runtime = iota
	// RuntimeBrowser means the client runs in a browser (wasm) context.
	RuntimeBrowser
)

func (r Runtime) String() string {
	if r == RuntimeBrowser {
		return "browser"
	}
	return "server"
}

// DetectRuntime resolves the execution context once per client: wasm builds
// are always the browser runtime, otherwise the IGVF_RUNTIME environment
// variable decides, defaulting to server.
func DetectRuntime() Runtime {
	if runtime.GOOS == "js" {
		return RuntimeBrowser
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envRuntime)), "browser") {
		return RuntimeBrowser
	}
	return RuntimeServer
}

// Session is the session object obtained from the data provider after login.
// Only the CSRF token matters to this layer; it authenticates browser-side
// requests.
type Session struct {
	CSRFToken string `json:"_csrft_"`
}

// AuthContext selects one of three mutually exclusive authentication modes,
// fixed for the lifetime of one client instance:
//
//   - Cookie: server-side requests forwarding the end user's browser cookie
//     upstream.
//   - Session: browser-side requests attaching the session's CSRF token.
//   - Backend: requests directed at the hosting application's own API; no
//     per-request auth header beyond platform defaults.
//
// Construct a new client per logical request or session; never share an
// AuthContext across users.
type AuthContext struct {
	Cookie  string
	Session *Session
	Backend bool
}

// validate enforces the construction invariants: cookie and session are
// mutually exclusive, and outside backend mode each mode is only valid in
// the process context it was designed for.
func (a AuthContext) validate(rt Runtime) *ConfigError {
	if a.Cookie != "" && a.Session != nil {
		return &ConfigError{Reason: "must authenticate with either cookie (server-side requests) or session (client-side requests) but not both"}
	}
	if !a.Backend {
		if rt == RuntimeServer && a.Session != nil {
			return &ConfigError{Reason: "server-side requests require a cookie, but a session was provided"}
		}
		if rt == RuntimeBrowser && a.Cookie != "" {
			return &ConfigError{Reason: "client-side requests require a session, but a cookie was provided"}
		}
	}
	return nil
}

// headers derives the immutable per-instance request headers for this
// authentication mode. Derived once at construction and never re-derived.
func (a AuthContext) headers(rt Runtime) http.Header {
	h := make(http.Header)
	if a.Cookie != "" && rt == RuntimeServer {
		h.Set("Cookie", a.Cookie)
	}
	if a.Session != nil && rt == RuntimeBrowser && !a.Backend {
		h.Set("X-CSRF-Token", a.Session.CSRFToken)
	}
	return h
}

// baseURL picks the base URL for this mode: backend mode targets the hosting
// application's own API; otherwise the data provider is reached through the
// server-to-server URL or the browser-facing URL depending on runtime.
func (a AuthContext) baseURL(rt Runtime, cfg Config) string {
	if a.Backend {
		return cfg.ServerURL
	}
	if rt == RuntimeServer {
		return cfg.BackendURL
	}
	return cfg.APIURL
}
