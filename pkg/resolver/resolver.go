// Package resolver maps noisy, transcribed item names onto catalog entries.
package resolver

import (
	"strings"

	"github.com/aretw0/roomservice/pkg/domain"
)

// DefaultThreshold is the share of spoken tokens that must appear in an item
// name for a token-overlap match.
const DefaultThreshold = 0.7

// Resolver matches spoken names in strict precedence order: exact
// (case-insensitive), substring in either direction, then token overlap.
// The first qualifying entry in catalog order wins.
type Resolver struct {
	threshold float64
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithThreshold overrides the token-overlap threshold. Values outside (0, 1]
// are ignored.
func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 && t <= 1 {
			r.threshold = t
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the configured token-overlap threshold.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve finds the menu item the guest most likely meant.
func (r *Resolver) Resolve(spoken string, items []domain.MenuItem) (domain.MenuItem, bool) {
	i := r.match(spoken, len(items), func(i int) string { return items[i].Name })
	if i < 0 {
		return domain.MenuItem{}, false
	}
	return items[i], true
}

// ResolveCategory applies the same precedence to category names.
func (r *Resolver) ResolveCategory(spoken string, categories []domain.Category) (domain.Category, bool) {
	i := r.match(spoken, len(categories), func(i int) string { return categories[i].Name })
	if i < 0 {
		return domain.Category{}, false
	}
	return categories[i], true
}

// Resolve uses a Resolver with the default threshold.
func Resolve(spoken string, items []domain.MenuItem) (domain.MenuItem, bool) {
	return New().Resolve(spoken, items)
}

func (r *Resolver) match(spoken string, n int, name func(int) string) int {
	needle := normalize(spoken)
	if needle == "" || n == 0 {
		return -1
	}

	for i := 0; i < n; i++ {
		if normalize(name(i)) == needle {
			return i
		}
	}

	for i := 0; i < n; i++ {
		candidate := normalize(name(i))
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return i
		}
	}

	spokenTokens := tokenSet(needle)
	required := r.threshold * float64(len(spokenTokens))
	for i := 0; i < n; i++ {
		itemTokens := tokenSet(normalize(name(i)))
		overlap := 0
		for tok := range spokenTokens {
			if _, ok := itemTokens[tok]; ok {
				overlap++
			}
		}
		if overlap > 0 && float64(overlap) >= required {
			return i
		}
	}
	return -1
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}
