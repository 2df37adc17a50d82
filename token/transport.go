package token

import (
	"context"
	"io"
	"net/http"
)

type retriedKey struct{}

// Transport is an http.RoundTripper that authorizes outgoing requests with
// the manager's access token and transparently recovers from expired tokens.
//
// Behaviour on a 401 response for a request that has not been retried yet:
// the transport joins (or starts) the manager's single-flight refresh, and on
// success re-issues the original request exactly once with the new token. On
// refresh failure the original 401 is returned untouched. Any non-401
// response, and a 401 on an already retried request, passes through
// unchanged.
type Transport struct {
	// Base performs the actual round trips. http.DefaultTransport when nil.
	Base http.RoundTripper

	Manager *Manager
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	authed := req
	if tok := t.Manager.Get(); tok != "" && req.Header.Get("Authorization") == "" {
		authed = req.Clone(req.Context())
		authed.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := t.base().RoundTrip(authed)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusUnauthorized {
		return res, nil
	}
	if req.Context().Value(retriedKey{}) != nil {
		// Already retried once; do not loop.
		return res, nil
	}

	newTok, refreshErr := t.Manager.Refresh(req.Context())
	if refreshErr != nil {
		// Session is not renewable; surface the original 401.
		return res, nil
	}

	retry := req.Clone(context.WithValue(req.Context(), retriedKey{}, true))
	if req.Body != nil {
		if req.GetBody == nil {
			// Cannot replay the body; the caller gets the original 401.
			return res, nil
		}
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return res, nil
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+newTok)

	drain(res)
	retriedRequests.Inc()
	return t.base().RoundTrip(retry)
}

func drain(res *http.Response) {
	if res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	_ = res.Body.Close()
}
