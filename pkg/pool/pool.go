// Package pool provides a typed object pool. It wraps sync.Pool with a reset
// hook and usage counters so hot decode loops can recycle their scratch
// objects.
//
// Example usage:
//
//	maps := pool.New(
//	    func() map[string]string { return make(map[string]string, 16) },
//	    func(m map[string]string) { clear(m) },
//	)
//	m := maps.Get()
//	defer maps.Put(m)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool. It is safe for concurrent use.
//
// Objects obtained with Get must not be used after they are passed to Put.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. new builds an object when the pool is empty; reset, if
// non-nil, runs on every object handed back to Put.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, allocating one when it is empty
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.gets, 1)
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns how many objects were allocated, how many are checked out,
// and how many Gets were served from recycled objects
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	allocated = atomic.LoadInt64(&p.stats.allocated)
	inUse = atomic.LoadInt64(&p.stats.inUse)
	hits = atomic.LoadInt64(&p.stats.gets) - allocated
	if hits < 0 {
		hits = 0
	}
	return allocated, inUse, hits
}
