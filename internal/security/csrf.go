package security

import (
	"net/http"
	"net/url"
	"strings"
)

// SameOrigin rejects state-changing requests whose Origin (or Referer when
// Origin is absent) points at a different host. It guards the cookie based
// login and logout forms.
type SameOrigin struct {
	// Allowed lists extra origins such as a separately hosted frontend.
	Allowed []string
}

// Middleware enforces the origin check on unsafe methods.
func (s SameOrigin) Middleware(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(s.Allowed))
	for _, origin := range s.Allowed {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			allowed[strings.ToLower(trimmed)] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		source := strings.TrimSpace(r.Header.Get("Origin"))
		if source == "" {
			source = strings.TrimSpace(r.Header.Get("Referer"))
		}
		if source == "" {
			// Non-browser clients send neither header.
			next.ServeHTTP(w, r)
			return
		}
		u, err := url.Parse(source)
		if err != nil || u.Host == "" {
			http.Error(w, "invalid origin", http.StatusForbidden)
			return
		}
		if strings.EqualFold(u.Host, r.Host) {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]; ok {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "cross-origin request rejected", http.StatusForbidden)
	})
}
