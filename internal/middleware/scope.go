package middleware

import (
	"net/http"
	"strings"
)

// HeaderXToken is the custom credential header used by the mini-program and
// the back-office SPA.  Go's http.Header canonicalises names, so x-token and
// X-Token both resolve to it.
const HeaderXToken = "X-Token"

// Route prefixes the auth chain keys off.  Classification uses the raw
// request path, before Echo routing, so unknown paths still get a scope.
const (
	PathLpwxPrefix  = "/api/lpwx/"
	PathFleetPrefix = "/api/lpwx/fleet/"
	PathDcPrefix    = "/api/dc/"
	PathDcCases     = "/api/dc/cases"

	// Public sub-trees: no principal required.
	PathLpwxAuthPrefix = "/api/lpwx/auth/"
	PathDcLogin        = "/api/dc/auth/login"
	PathSharedCertView = "/api/lpwx/fleet/certificates/shared/"
)

// Scope decides which header a request's credentials are read from and which
// token namespace they are verified against.
type Scope int

const (
	// ScopeOther covers paths outside both API trees; a business token is
	// parsed best-effort from X-Token but nothing enforces it.
	ScopeOther Scope = iota
	// ScopeLpwx is the mini-program tree: business token from X-Token only.
	ScopeLpwx
	// ScopeLpwxFleet is the fleet console sub-tree: business token from the
	// Authorization header only (the console is a web client, not the
	// mini-program, and sends standard Bearer credentials).
	ScopeLpwxFleet
	// ScopeDc is the back-office tree: admin token from X-Token only.
	ScopeDc
	// ScopeDcCasesRead is the shared case-read surface: the website reads
	// cases with a business token in Authorization, the back-office with an
	// admin token in X-Token.  Both slots are parsed.
	ScopeDcCasesRead
)

func (s Scope) String() string {
	switch s {
	case ScopeLpwx:
		return "lpwx"
	case ScopeLpwxFleet:
		return "lpwxFleet"
	case ScopeDc:
		return "dc"
	case ScopeDcCasesRead:
		return "dcCasesRead"
	default:
		return "other"
	}
}

// ClassifyScope maps a request to its credential scope.  The fleet sub-tree
// must be checked before the general lpwx prefix, and the case group before
// the general dc prefix; ordering here is load-bearing.
func ClassifyScope(method, path string) Scope {
	switch {
	case path == PathDcCases || strings.HasPrefix(path, PathDcCases+"/"):
		if method == http.MethodGet {
			return ScopeDcCasesRead
		}
		return ScopeDc
	case strings.HasPrefix(path, PathDcPrefix):
		return ScopeDc
	case strings.HasPrefix(path, PathFleetPrefix):
		return ScopeLpwxFleet
	case strings.HasPrefix(path, PathLpwxPrefix):
		return ScopeLpwx
	default:
		return ScopeOther
	}
}

// inCasesGroup reports whether the path belongs to the shared case surface.
func inCasesGroup(path string) bool {
	return path == PathDcCases || strings.HasPrefix(path, PathDcCases+"/")
}

// headerToken extracts a raw token from the named header: the first
// non-empty value wins, a "Bearer " prefix (any case) is stripped, and the
// result is trimmed.  Some clients send the bare token in Authorization and
// some prefix X-Token with Bearer out of habit; both are accepted.
func headerToken(h http.Header, name string) string {
	for _, v := range h.Values(name) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
			v = strings.TrimSpace(v[7:])
		}
		if v != "" {
			return v
		}
	}
	return ""
}

// customToken reads the credential from X-Token.
func customToken(h http.Header) string { return headerToken(h, HeaderXToken) }

// bearerToken reads the credential from Authorization.
func bearerToken(h http.Header) string { return headerToken(h, "Authorization") }
