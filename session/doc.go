// Package session composes the token manager, the tenant context, and the
// logout broadcast bus into the authoritative session state machine for the
// admin console.
//
// The state machine has three states: unknown, authenticated, and
// unauthenticated. Bootstrap resolves unknown by silently exchanging the
// httpOnly refresh cookie for an access token; an explicit login commits a
// session via SetAuth; ClearAuth collapses it everywhere.
package session
