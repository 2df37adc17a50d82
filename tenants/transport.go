package tenants

import (
	"context"
	"net/http"
)

// HeaderName is the tenant scope header understood by the backend.
const HeaderName = "x-tenant-id"

type optOutKey struct{}

// WithoutScope marks a request context as intentionally tenant-agnostic.
// The "list my restaurants" endpoint must never be scoped, otherwise the
// backend would filter the list down to the scoped tenant.
func WithoutScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, optOutKey{}, true)
}

func scopeOptedOut(ctx context.Context) bool {
	return ctx.Value(optOutKey{}) != nil
}

// Transport injects the current tenant scope header into every outgoing
// request unless the request context opted out via WithoutScope. It should
// wrap the token transport so the header survives the 401 retry.
type Transport struct {
	Base    http.RoundTripper
	Context *Context
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	value := t.Context.HeaderValue()
	if value == "" || scopeOptedOut(req.Context()) {
		return base.RoundTrip(req)
	}

	scoped := req.Clone(req.Context())
	scoped.Header.Set(HeaderName, value)
	return base.RoundTrip(scoped)
}
