package ai

import (
	"fmt"

	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// CatalogEntry pairs a provider with its models in preference order.
type CatalogEntry struct {
	Provider models.StructuredProvider
	Models   []string
}

// Name returns the provider name.
func (e CatalogEntry) Name() string { return e.Provider.Name() }

// FirstModel returns the provider's preferred model.
func (e CatalogEntry) FirstModel() string { return e.Models[0] }

// Catalog is the immutable, ordered set of structured generation providers.
// Entry order is the fallback order.
type Catalog struct {
	entries []CatalogEntry
	index   map[string]int
}

// NewCatalog validates and freezes entries in the given order.
func NewCatalog(entries ...CatalogEntry) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if e.Provider == nil {
			return nil, fmt.Errorf("catalog entry has no provider")
		}
		name := e.Provider.Name()
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("provider %q listed twice", name)
		}
		if len(e.Models) == 0 {
			return nil, fmt.Errorf("provider %q has no models", name)
		}
		c.index[name] = len(c.entries)
		c.entries = append(c.entries, CatalogEntry{
			Provider: e.Provider,
			Models:   append([]string(nil), e.Models...),
		})
	}
	return c, nil
}

// Entries returns a copy of the entries in fallback order.
func (c *Catalog) Entries() []CatalogEntry {
	return append([]CatalogEntry(nil), c.entries...)
}

// Lookup returns the entry for name.
func (c *Catalog) Lookup(name string) (CatalogEntry, bool) {
	i, ok := c.index[name]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// HasCredentialedProvider reports whether any provider can be called.
func (c *Catalog) HasCredentialedProvider() bool {
	for _, e := range c.entries {
		if e.Provider.HasCredentials() {
			return true
		}
	}
	return false
}

// ProviderInfo is the public view of a catalog entry.
type ProviderInfo struct {
	Name           string   `json:"name"`
	Models         []string `json:"models"`
	HasCredentials bool     `json:"has_credentials"`
}

// Describe lists every provider in fallback order.
func (c *Catalog) Describe() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, ProviderInfo{
			Name:           e.Name(),
			Models:         append([]string(nil), e.Models...),
			HasCredentials: e.Provider.HasCredentials(),
		})
	}
	return out
}
