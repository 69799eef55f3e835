package usecase

import (
	"fmt"
	"sort"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

// ProviderRegistry maps source types to snapshot providers. It is built once
// at startup and read concurrently afterwards.
type ProviderRegistry struct {
	providers map[match.SourceType]match.SnapshotProvider
}

func NewProviderRegistry(providers ...match.SnapshotProvider) (*ProviderRegistry, error) {
	r := &ProviderRegistry{providers: make(map[match.SourceType]match.SnapshotProvider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		source := p.Supports()
		if _, exists := r.providers[source]; exists {
			return nil, fmt.Errorf("duplicate snapshot provider for source %s", source)
		}
		r.providers[source] = p
	}
	return r, nil
}

func (r *ProviderRegistry) Resolve(source match.SourceType) (match.SnapshotProvider, error) {
	if r != nil {
		if p, ok := r.providers[source]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", match.ErrUnknownSource, source)
}

func (r *ProviderRegistry) Sources() []match.SourceType {
	if r == nil {
		return nil
	}
	out := make([]match.SourceType, 0, len(r.providers))
	for source := range r.providers {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
