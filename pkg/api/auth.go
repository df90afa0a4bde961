package api

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

// AuthConfig holds API credentials. Users and APIKeys have full access.
// ReadOnlyKeys may read the store and use the stateless transformations
// but may not stage, commit, roll back or replace configuration.
type AuthConfig struct {
	Users        map[string]string // username -> password
	APIKeys      map[string]bool
	ReadOnlyKeys map[string]bool
}

// access is the level granted to a request's credentials.
type access int

const (
	accessNone access = iota
	accessRead
	accessWrite
)

// publicPaths are served without credentials.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// writesStore reports whether r changes the configuration store. Preview
// and commit-check stage the candidate, so every non-GET request under
// /api/v1/config counts.
func writesStore(r *http.Request) bool {
	return r.Method != http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/config")
}

// authMiddleware checks Basic, Bearer and X-API-Key credentials against
// cfg. Missing or wrong credentials get 401; read-only credentials on a
// store write get 403.
func authMiddleware(cfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		switch grant := cfg.grant(r); {
		case grant == accessNone:
			w.Header().Set("WWW-Authenticate", `Basic realm="xrcfg API"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
		case grant == accessRead && writesStore(r):
			writeError(w, http.StatusForbidden, "credentials are read-only")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// grant returns the best access any presented credential allows.
func (cfg AuthConfig) grant(r *http.Request) access {
	best := accessNone
	if auth := r.Header.Get("Authorization"); auth != "" {
		best = max(best, cfg.checkAuthorization(auth))
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		best = max(best, cfg.keyAccess(key))
	}
	return best
}

func (cfg AuthConfig) keyAccess(key string) access {
	switch {
	case cfg.APIKeys[key]:
		return accessWrite
	case cfg.ReadOnlyKeys[key]:
		return accessRead
	}
	return accessNone
}

// checkAuthorization validates an Authorization header value.
func (cfg AuthConfig) checkAuthorization(auth string) access {
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return cfg.keyAccess(token)
	}

	payload, ok := strings.CutPrefix(auth, "Basic ")
	if !ok {
		return accessNone
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return accessNone
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return accessNone
	}
	expected, exists := cfg.Users[user]
	if !exists || subtle.ConstantTimeCompare([]byte(pass), []byte(expected)) != 1 {
		return accessNone
	}
	return accessWrite
}
