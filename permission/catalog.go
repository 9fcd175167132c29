package permission

import (
	"errors"
	"sync"
)

// Catalog maps role names to permission masks. Roles are registered at
// startup and the catalog is then frozen; [Catalog.Mask] hands out the
// mask by value so callers always receive a snapshot.
type Catalog struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

// NewCatalog creates a role [Catalog] resolving names through registry.
func NewCatalog(registry *Registry) *Catalog {
	return &Catalog{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole builds the mask for roleName from permissionNames. Every
// name must already exist in the registry.
func (c *Catalog) RegisterRole(roleName string, permissionNames []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return errors.New("catalog frozen")
	}

	if roleName == "" {
		return errors.New("role name empty")
	}

	if _, exists := c.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	var mask Mask64
	for _, perm := range permissionNames {
		bit, ok := c.registry.Bit(perm)
		if !ok {
			return errors.New("permission not registered: " + perm)
		}
		mask.Set(bit)
	}

	c.roles[roleName] = mask
	return nil
}

// Mask returns a snapshot of the role's permission mask, or false for an
// unknown role.
func (c *Catalog) Mask(roleName string) (Mask64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mask, ok := c.roles[roleName]
	return mask, ok
}

// Bit resolves a permission name through the underlying registry.
func (c *Catalog) Bit(permissionName string) (int, bool) {
	return c.registry.Bit(permissionName)
}

// Names resolves mask back to the sorted-by-bit list of permission names.
func (c *Catalog) Names(mask Mask64) []string {
	var names []string

	for bit := 0; bit < c.registry.Count(); bit++ {
		if !mask.Has(bit) {
			continue
		}
		if name, ok := c.registry.Name(bit); ok {
			names = append(names, name)
		}
	}

	return names
}

// Freeze prevents further role registrations.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Count returns the number of registered roles.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roles)
}
