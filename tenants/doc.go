// Package tenants derives the restaurant scope of every outgoing request
// from the operator's role: fixed for managers and staff, explicitly
// selected for owners.
package tenants
