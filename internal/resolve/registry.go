package resolve

import (
	"errors"
)

// HandlerFunc handles one registered failure. Returning nil passes the
// failure on to the next registration and, ultimately, the next
// resolver in the chain.
type HandlerFunc func(req Request, err error) *Resolution

type registration struct {
	target  error
	handler HandlerFunc
}

// Registry resolves failures through explicitly registered handlers.
// It is the most specific stage of the chain: registrations are
// matched in the order they were added, so register narrow targets
// before broad ones.
type Registry struct {
	registrations []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// On registers fn for failures matching target via errors.Is.
func (r *Registry) On(target error, fn HandlerFunc) *Registry {
	r.registrations = append(r.registrations, registration{target: target, handler: fn})
	return r
}

func (r *Registry) Name() string {
	return "registry"
}

func (r *Registry) Resolve(req Request, err error) (*Resolution, bool) {
	for _, reg := range r.registrations {
		if !errors.Is(err, reg.target) {
			continue
		}
		if res := reg.handler(req, err); res != nil {
			return res, true
		}
	}
	return nil, false
}
