package obs

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

// Keys handlers use with Annotate.
const (
	AttrReceiptID       = "receipt.id"
	AttrReceiptTemplate = "receipt.template"
	AttrReceiptFormat   = "receipt.format"
	AttrBasketSource    = "basket.source"
	AttrPlacesResult    = "places.result"
	AttrSessionID       = "session.id"
)

const unmatchedRoute = "unmatched"

type annotationsKey struct{}

// annotations collects attributes that only become known inside a handler.
type annotations struct {
	mu    sync.Mutex
	attrs []attribute.KeyValue
}

// WithAnnotations attaches an empty annotation set to ctx.
func WithAnnotations(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, annotationsKey{}, &annotations{})
}

// Annotate records a domain attribute for the current request. It is a no-op
// when RequestContext did not run. A repeated key overwrites the earlier value.
func Annotate(ctx context.Context, key, value string) {
	if ctx == nil {
		return
	}
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, kv := range a.attrs {
		if string(kv.Key) == key {
			a.attrs[i] = attribute.String(key, value)
			return
		}
	}
	a.attrs = append(a.attrs, attribute.String(key, value))
}

// Annotations returns a copy of the attributes recorded for the request.
func Annotations(ctx context.Context) []attribute.KeyValue {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]attribute.KeyValue(nil), a.attrs...)
}

// RequestContext prepares the per-request annotation set. It must run before
// the tracing, metrics and logging middleware.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithAnnotations(r.Context())))
	})
}

// Route returns the chi pattern that served r. The pattern is only complete
// after the router has run, so middleware calls it once next returns.
func Route(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}
