package primitives

import (
	"fmt"
	"sync"

	"github.com/keysmith-io/keysmith/internal"
)

// Family describes an algorithm family: how to generate fresh key material
// and how to turn stored material back into a usable primitive.
type Family struct {
	Name string
	// NewMaterial returns fresh serialized key material. The caller stores
	// the result; this package never persists anything.
	NewMaterial func() ([]byte, error)
	// Primitive instantiates the family's capability from key material.
	Primitive func(material []byte) (Primitive, error)
}

// Registry maps family names to their implementations. Families are
// registered explicitly at process start; there are no import side effects.
type Registry struct {
	mu       sync.RWMutex
	families map[string]Family
}

func NewRegistry() *Registry {
	return &Registry{families: make(map[string]Family)}
}

// Register adds a family to the registry. Registering the same name again
// replaces the previous entry, which makes init idempotent.
func (r *Registry) Register(f Family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[f.Name] = f
}

// Family returns the registered family, or ErrInvalidConfiguration when the
// name is unknown.
func (r *Registry) Family(name string) (Family, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.families[name]
	if !ok {
		return Family{}, fmt.Errorf("%w: unknown algorithm family %q", internal.ErrInvalidConfiguration, name)
	}
	return f, nil
}

// Default returns a registry with every built-in family registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(aesGCMFamily())
	r.Register(aesSIVFamily())
	return r
}
