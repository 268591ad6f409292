package auth

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/jwtauth/bearer"
	apperrors "github.com/kbukum/jwtauth/errors"
	"github.com/kbukum/jwtauth/jwt"
)

// DefaultComponent is the name Service registers its JWT component under.
const DefaultComponent = "jwt"

// Registry is a thread-safe set of named JWT components, so that filters can
// refer to a component by name.
//
//	reg.Register("partner", partnerJWT)
//	filter, err := reg.Filter("partner", bearer.Config{Realm: "partners"}, bearer.WithIdentityFunc(fn))
type Registry struct {
	mu          sync.RWMutex
	components  map[string]*jwt.JWT
	defaultName string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{components: make(map[string]*jwt.JWT)}
}

// Register adds j under name, replacing any previous entry. The first
// registered component becomes the default.
func (r *Registry) Register(name string, j *jwt.JWT) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = j
	if r.defaultName == "" {
		r.defaultName = name
	}
}

// Get returns the component registered under name.
func (r *Registry) Get(name string) (*jwt.JWT, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.components[name]
	return j, ok
}

// MustGet is Get that panics when name is not registered.
func (r *Registry) MustGet(name string) *jwt.JWT {
	j, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("auth: jwt component %q not registered", name))
	}
	return j
}

// Default returns the default component.
func (r *Registry) Default() (*jwt.JWT, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return nil, false
	}
	j, ok := r.components[r.defaultName]
	return j, ok
}

// SetDefault makes an already registered component the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[name]; !ok {
		return fmt.Errorf("auth: jwt component %q not registered", name)
	}
	r.defaultName = name
	return nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter creates a bearer filter that loads tokens with the named component.
// An unknown name is a configuration error.
func (r *Registry) Filter(name string, cfg bearer.Config, opts ...bearer.Option) (*bearer.Filter, error) {
	j, ok := r.Get(name)
	if !ok {
		return nil, apperrors.Configuration("auth: jwt component %q not registered", name)
	}
	return bearer.NewFilter(cfg, j, opts...)
}
