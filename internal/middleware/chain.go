// Package middleware composes the HTTP middleware stack.
package middleware

import (
	"fmt"
	"net/http"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered middleware stack. The first middleware added is the
// outermost: requests flow through the chain in insertion order and
// responses unwind in reverse.
//
// A Chain is not safe for concurrent mutation; Apply only reads it.
type Chain struct {
	middlewares []Middleware
}

// NewChain returns a chain holding the given middlewares, outermost first.
func NewChain(middlewares ...Middleware) *Chain {
	mc := &Chain{middlewares: make([]Middleware, 0, len(middlewares))}
	for _, m := range middlewares {
		mc.Add(m)
	}
	return mc
}

// Add appends m as the innermost middleware. Nil middlewares are ignored so
// callers can pass optional layers unconditionally.
func (mc *Chain) Add(m Middleware) {
	if m == nil {
		return
	}
	mc.middlewares = append(mc.middlewares, m)
}

// Len reports the number of middlewares in the chain.
func (mc *Chain) Len() int {
	return len(mc.middlewares)
}

// Apply wraps handler with every middleware in the chain.
func (mc *Chain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("middleware.Chain.Apply: handler cannot be nil")
	}

	wrapped := handler
	for i := len(mc.middlewares) - 1; i >= 0; i-- {
		wrapped = mc.middlewares[i](wrapped)
		if wrapped == nil {
			panic(fmt.Sprintf("middleware.Chain.Apply: middleware at index %d returned nil handler", i))
		}
	}
	return wrapped
}

// Clone returns an independent copy of the chain.
func (mc *Chain) Clone() *Chain {
	out := make([]Middleware, len(mc.middlewares))
	copy(out, mc.middlewares)
	return &Chain{middlewares: out}
}
