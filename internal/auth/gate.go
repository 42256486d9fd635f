package auth

import (
	"net/http"
	"path"
	"strings"

	"github.com/noah-isme/backend-struk/internal/common"
	"github.com/noah-isme/backend-struk/internal/obs"
)

// DefaultCookieName holds the signed session token.
const DefaultCookieName = "auth_session"

var staticExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".map": {}, ".ico": {}, ".png": {}, ".jpg": {},
	".jpeg": {}, ".svg": {}, ".webp": {}, ".woff": {}, ".woff2": {}, ".txt": {},
}

// Gate redirects browsers without a valid session to the login page.
type Gate struct {
	Service    *Service
	CookieName string
	LoginPath  string
}

// Public reports whether a path is reachable without a session.
func Public(p string) bool {
	switch {
	case strings.HasPrefix(p, "/api/"):
		return true
	case p == "/auth" || strings.HasPrefix(p, "/auth/"):
		return true
	case strings.HasPrefix(p, "/health/"):
		return true
	case p == "/metrics":
		return true
	case strings.HasPrefix(p, "/static/"):
		return true
	}
	_, ok := staticExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// Middleware enforces the gate on every non-public path.
func (g Gate) Middleware(next http.Handler) http.Handler {
	cookieName := g.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	loginPath := g.LoginPath
	if loginPath == "" {
		loginPath = "/auth"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Public(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if g.Service != nil {
			if cookie, err := r.Cookie(cookieName); err == nil {
				if id, err := g.Service.Verify(cookie.Value); err == nil {
					obs.Annotate(r.Context(), obs.AttrSessionID, id)
					next.ServeHTTP(w, r.WithContext(common.WithSession(r.Context(), id)))
					return
				}
			}
		}
		http.Redirect(w, r, loginPath, http.StatusFound)
	})
}
