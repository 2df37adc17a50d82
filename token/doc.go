// Package token holds the short-lived access credential for the admin
// console and keeps it valid.
//
// The credential lives only in process memory. [Manager] owns it and
// enforces the single-flight refresh discipline: under N concurrent requests
// that all fail with an expired token, exactly one refresh call reaches the
// backend and all N requests are retried against the one new token.
// [Transport] plugs that discipline into an http.Client.
package token
