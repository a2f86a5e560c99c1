// Package resolve turns failures raised by request handlers into HTTP
// responses. Resolvers are tried in a fixed order; the first one that
// claims a failure wins. A failure no resolver claims falls through to
// the FallbackRenderer.
package resolve

import (
	"go.uber.org/zap"
)

// Request carries the request context a resolver may inspect when
// deciding whether it can handle a failure.
type Request struct {
	Method  string
	Path    string
	Handler string
}

// Resolution is the terminal outcome of a resolved failure.
type Resolution struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Resolver attempts to convert a raised failure into a Resolution.
// Returning ok == false means the resolver declines and the next one
// in the chain is consulted.
type Resolver interface {
	Name() string
	Resolve(req Request, err error) (*Resolution, bool)
}

// Chain holds an ordered sequence of resolvers. Order is fixed at
// construction; there is no prioritization beyond position.
type Chain struct {
	resolvers []Resolver
	logger    *zap.Logger
}

func NewChain(logger *zap.Logger, resolvers ...Resolver) *Chain {
	return &Chain{
		resolvers: resolvers,
		logger:    logger.Named("ResolverChain"),
	}
}

// Resolve walks the chain in order and returns the first resolution
// produced, along with the name of the resolver that produced it.
// Resolvers after the winning one are never invoked. If every resolver
// declines, ok is false and the caller must fall back.
//
// The chain itself never raises: a resolver that panics is logged and
// treated as having declined.
func (c *Chain) Resolve(req Request, err error) (res *Resolution, resolvedBy string, ok bool) {
	for _, r := range c.resolvers {
		if res, ok := c.tryResolver(r, req, err); ok {
			return res, r.Name(), true
		}
	}
	return nil, "", false
}

func (c *Chain) tryResolver(r Resolver, req Request, err error) (res *Resolution, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("Resolver panicked, treating failure as unresolved by it",
				zap.String("resolver", r.Name()),
				zap.Any("panic", rec),
				zap.Error(err),
			)
			res, ok = nil, false
		}
	}()
	return r.Resolve(req, err)
}
