// file: internal/enricher/policy.go
// version: 1.0.0
// guid: 3159ec83-c66a-4f98-9158-18c8034c48d4

package enricher

import (
	"time"

	"github.com/jdfalk/album-enricher/internal/models"
)

// DefaultMaxAge is how long a refresh result is trusted by AgePolicy.
const DefaultMaxAge = 30 * 24 * time.Hour

// StalenessPolicy is the general refresh policy consulted when fingerprint
// drift alone does not force a refresh.
type StalenessPolicy interface {
	IsStale(album models.Album, state *models.ProviderState) bool
}

// PolicyFunc adapts a plain function to StalenessPolicy.
type PolicyFunc func(album models.Album, state *models.ProviderState) bool

func (f PolicyFunc) IsStale(album models.Album, state *models.ProviderState) bool {
	return f(album, state)
}

// AgePolicy expires provider state older than MaxAge. Albums that were never
// refreshed are always stale. A non-positive MaxAge never expires.
type AgePolicy struct {
	MaxAge time.Duration
	Now    func() time.Time
}

func (p AgePolicy) IsStale(_ models.Album, state *models.ProviderState) bool {
	if state == nil || state.LastRefreshed.IsZero() {
		return true
	}
	if p.MaxAge <= 0 {
		return false
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().Sub(state.LastRefreshed) > p.MaxAge
}

// NeverStale leaves refresh decisions entirely to the fingerprint check.
type NeverStale struct{}

func (NeverStale) IsStale(models.Album, *models.ProviderState) bool { return false }
