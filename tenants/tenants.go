package tenants

import "sync"

// Summary is one entry in an owner's switchable restaurant list.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Tenant is the full detail of the currently scoped restaurant.
type Tenant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Context holds the tenant scope attached to outgoing requests.
//
// Two mutually exclusive modes:
//
//   - bound: manager/staff users are fixed to their own restaurant; the scope
//     always mirrors the user's tenant id and is not client-selectable.
//   - selectable: owner users carry a list of restaurants and must select one
//     explicitly before any tenant-scoped call; until then no scope header is
//     sent at all.
type Context struct {
	mu       sync.RWMutex
	tenants  []Summary
	selected string
	bound    string
}

func NewContext() *Context {
	return &Context{}
}

// Bind fixes the scope to a single tenant id (non-owner roles). Binding
// clears any owner-mode list and selection.
func (c *Context) Bind(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound = tenantID
	c.tenants = nil
	c.selected = ""
}

// SetTenants replaces the known tenant list (owner role only). A previous
// selection that is no longer in the list is dropped.
func (c *Context) SetTenants(list []Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants = append([]Summary(nil), list...)
	if c.selected != "" && !member(c.tenants, c.selected) {
		c.selected = ""
	}
}

// Select records the tenant the owner is working in. It succeeds only when
// the id is a member of the known tenant list and the scope is not bound;
// otherwise it is a no-op and returns false.
func (c *Context) Select(tenantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound != "" {
		return false
	}
	if !member(c.tenants, tenantID) {
		return false
	}
	c.selected = tenantID
	return true
}

// Reset clears the selection, the known list, and the bound scope. After
// Reset no scope header is sent.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants = nil
	c.selected = ""
	c.bound = ""
}

// HeaderValue returns the value to send as the tenant scope header, or ""
// when no scope applies.
func (c *Context) HeaderValue() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.bound != "" {
		return c.bound
	}
	return c.selected
}

// Tenants returns a copy of the known tenant list.
func (c *Context) Tenants() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Summary(nil), c.tenants...)
}

// Selected returns the owner's current selection, or "".
func (c *Context) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

func member(list []Summary, id string) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}
