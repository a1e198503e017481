// Package font resolves trait variants of theme fonts.
package font

import (
	"sync"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// Provider looks up trait variants of a font.
type Provider interface {
	// Variant returns base restyled with traits, or false if the family
	// has no face for that trait combination.
	Variant(base core.FontRef, traits core.FontTraits) (core.FontRef, bool)
}

// Registry records which trait combinations each font family provides.
// Families that were never registered are treated as offering every
// combination, which matches terminal surfaces where bold and italic are
// rendering attributes rather than separate faces.
type Registry struct {
	mu       sync.RWMutex
	families map[string]map[core.FontTraits]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		families: make(map[string]map[core.FontTraits]bool),
	}
}

// Register declares the trait combinations available for a family.
// The untraited face is always available.
func (r *Registry) Register(family string, variants ...core.FontTraits) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := make(map[core.FontTraits]bool, len(variants)+1)
	set[core.TraitNone] = true
	for _, v := range variants {
		set[v] = true
	}
	r.families[family] = set
}

// Families returns the number of registered families.
func (r *Registry) Families() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.families)
}

// Variant implements Provider.
func (r *Registry) Variant(base core.FontRef, traits core.FontTraits) (core.FontRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.families[base.Family]
	if !ok {
		return base.WithTraits(traits), true
	}
	if !set[traits] {
		return core.FontRef{}, false
	}
	return base.WithTraits(traits), true
}

// Resolve returns the variant of base for traits, falling back to the
// untraited base when p has no such face. A nil provider always yields the
// traited ref.
func Resolve(p Provider, base core.FontRef, traits core.FontTraits) core.FontRef {
	if traits.IsEmpty() {
		return base.WithTraits(core.TraitNone)
	}
	if p == nil {
		return base.WithTraits(traits)
	}
	if v, ok := p.Variant(base, traits); ok {
		return v
	}
	return base.WithTraits(core.TraitNone)
}
