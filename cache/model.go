package cache

import "fmt"

// A Model is anything that can replay accesses and report counters.
type Model interface {
	Access(addr uint64) Outcome
	Stats() Statistics
}

// Policy selects the replacement policy of a model.
type Policy string

const (
	// PolicyCounter is the per-line recency counter policy of Cache.
	PolicyCounter Policy = "counter"
	// PolicyLRU is textbook least-recently-used, see ReferenceCache.
	PolicyLRU Policy = "lru"
)

// Policies lists every supported policy.
func Policies() []Policy {
	return []Policy{PolicyCounter, PolicyLRU}
}

// ParsePolicy converts a name into a Policy. The empty string selects
// PolicyCounter.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", PolicyCounter:
		return PolicyCounter, nil
	case PolicyLRU:
		return PolicyLRU, nil
	default:
		return "", fmt.Errorf("unknown replacement policy %q", name)
	}
}

// NewModel builds an empty model of the given geometry and policy.
func NewModel(geometry Geometry, policy Policy) (Model, error) {
	switch policy {
	case "", PolicyCounter:
		return New(geometry)
	case PolicyLRU:
		return NewReferenceCache(geometry)
	default:
		return nil, fmt.Errorf("unknown replacement policy %q", policy)
	}
}
