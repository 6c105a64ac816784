package vschema

import "sync"

type lazyData struct {
	fn   func() *Schema
	once bool

	mu     sync.Mutex
	cached *Schema
}

// LazyOptions controls Lazy. With Once the schema function runs a single
// time and its result is reused.
type LazyOptions struct {
	Once bool
}

func (l *lazyData) resolve() *Schema {
	if !l.once {
		return l.fn()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached == nil {
		l.cached = l.fn()
	}
	return l.cached
}

func (s *Schema) walkLazy(c *ruleCtx, v any) (any, []*ErrorItem) {
	if s.lazy == nil {
		return v, []*ErrorItem{c.err("lazy.base", nil)}
	}
	inner := s.lazy.resolve()
	if inner == nil {
		return v, []*ErrorItem{c.err("lazy.schema", nil)}
	}
	s.engine.log().Debug("lazy schema resolved", "type", inner.Type(), "path", c.st.Path)
	return inner.walk(v, c.st, c.o)
}
