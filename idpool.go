package notibus

// idPool issues dense positive observer ids from a monotonic counter plus a
// free stack of released ids. The smallest-recently-released id is reused
// before the counter advances. The pool is not self-locking; the bus mutex
// guards it.
type idPool struct {
	next  int64
	limit int64
	free  []ObserverID
	freed map[ObserverID]struct{}
}

func newIDPool(limit int64) *idPool {
	return &idPool{
		next:  1,
		limit: limit,
		freed: make(map[ObserverID]struct{}),
	}
}

// allocate returns a fresh id, preferring the free stack over the counter.
func (p *idPool) allocate() (ObserverID, error) {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		delete(p.freed, id)
		return id, nil
	}
	if p.next > p.limit {
		return 0, ErrObserverIDExhausted
	}
	id := ObserverID(p.next)
	p.next++
	return id, nil
}

// release returns an id to the free stack. It reports false for ids that were
// never allocated or are already free; such a release leaves the pool
// untouched.
func (p *idPool) release(id ObserverID) bool {
	if id <= 0 || int64(id) >= p.next {
		return false
	}
	if _, dup := p.freed[id]; dup {
		return false
	}
	p.free = append(p.free, id)
	p.freed[id] = struct{}{}
	return true
}
