// Package trusted holds the application-supplied credential checks that ride
// the same login entry point as the OAuth providers. A trusted provider is
// just a function; the flow validates the transport (POST, same origin) and
// hands it the positional arguments from the request body.
package trusted

import (
	"context"
	"fmt"
	"sort"

	"github.com/dropDatabas3/authcore/internal/oauth"
)

// AuthenticateFunc checks credentials given as positional arguments.
// A nil user or an error both mean authentication failed; the caller treats
// the two channels identically.
type AuthenticateFunc func(ctx context.Context, args []any) (*oauth.User, error)

// Registry maps trusted provider names to their authenticate functions.
// Populated at startup, read-only afterwards.
type Registry struct {
	providers map[string]AuthenticateFunc
}

// NewRegistry creates an empty trusted-provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]AuthenticateFunc)}
}

// Register adds a provider under name. Duplicate names are a wiring bug and
// fail loudly.
func (r *Registry) Register(name string, fn AuthenticateFunc) error {
	if name == "" {
		return fmt.Errorf("trusted provider name is empty")
	}
	if fn == nil {
		return fmt.Errorf("trusted provider %q has nil authenticate", name)
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("trusted provider %q registered twice", name)
	}
	r.providers[name] = fn
	return nil
}

// Get looks up a provider by name.
func (r *Registry) Get(name string) (AuthenticateFunc, bool) {
	fn, ok := r.providers[name]
	return fn, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
