package asset

import (
	"fmt"
	"strings"
	"sync"
)

// Asset identifies a tradeable asset. The set is closed at compile time;
// enabling/disabling at runtime goes through the Registry.
type Asset string

const (
	Bitcoin Asset = "BTC"
	Ether   Asset = "ETH"
)

// Parse maps a user-supplied symbol to a known asset.
func Parse(s string) (Asset, error) {
	switch strings.ToUpper(s) {
	case "BTC":
		return Bitcoin, nil
	case "ETH":
		return Ether, nil
	default:
		return "", fmt.Errorf("unknown asset %q", s)
	}
}

func (a Asset) String() string { return string(a) }

// Registry maps assets to their enabled state. The trading engine only
// accepts orders for assets that are present and enabled.
type Registry struct {
	mu     sync.RWMutex
	status map[Asset]bool
}

// NewRegistry seeds a registry with the given assets, all enabled.
func NewRegistry(assets ...Asset) *Registry {
	status := make(map[Asset]bool, len(assets))
	for _, a := range assets {
		status[a] = true
	}
	return &Registry{status: status}
}

// InternalAssetList is the default set the exchange boots with.
func InternalAssetList() []Asset {
	return []Asset{Bitcoin, Ether}
}

// Enabled reports whether the asset is known and currently enabled.
func (r *Registry) Enabled(a Asset) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status[a]
}

// SetEnabled flips an asset's state, adding it if unknown.
func (r *Registry) SetEnabled(a Asset, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[a] = enabled
}

// List returns all known assets.
func (r *Registry) List() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Asset, 0, len(r.status))
	for a := range r.status {
		out = append(out, a)
	}
	return out
}
