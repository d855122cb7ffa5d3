package supabase

import (
	"context"
	"sync"
)

// ProjectKeys holds the API keys resolved for one project. AnonKey may be
// empty; ServiceRoleKey never is.
type ProjectKeys struct {
	ServiceRoleKey string
	AnonKey        string
}

// KeyResolver exchanges (personal access token, project ref) for the
// project's API keys via the Management API, memoizing results for the
// lifetime of the process. The cache is unbounded and never invalidated: a
// rotated or revoked key stays cached until restart. Two concurrent
// resolutions of a never-seen ref may both fetch; both get the same keys and
// the last write wins, so the duplicate work is harmless.
type KeyResolver struct {
	mgmt *Management

	mu    sync.Mutex
	cache map[string]ProjectKeys
}

// NewKeyResolver returns a resolver backed by the given Management client.
func NewKeyResolver(mgmt *Management) *KeyResolver {
	return &KeyResolver{
		mgmt:  mgmt,
		cache: make(map[string]ProjectKeys),
	}
}

// Resolve parses the project ref out of projectURL and returns the project's
// keys, fetching them from the Management API at most once per ref per
// process. The lock is not held across the fetch.
func (r *KeyResolver) Resolve(ctx context.Context, projectURL string) (string, ProjectKeys, error) {
	ref, err := ParseProjectRef(projectURL)
	if err != nil {
		return "", ProjectKeys{}, err
	}

	r.mu.Lock()
	keys, ok := r.cache[ref]
	r.mu.Unlock()
	if ok {
		return ref, keys, nil
	}

	listing, err := r.mgmt.ProjectAPIKeys(ctx, ref)
	if err != nil {
		return "", ProjectKeys{}, err
	}
	for _, k := range listing {
		switch k.Name {
		case "service_role":
			keys.ServiceRoleKey = k.APIKey
		case "anon":
			keys.AnonKey = k.APIKey
		}
	}
	if keys.ServiceRoleKey == "" {
		return "", ProjectKeys{}, ErrMissingServiceRoleKey
	}

	r.mu.Lock()
	r.cache[ref] = keys
	r.mu.Unlock()
	return ref, keys, nil
}
