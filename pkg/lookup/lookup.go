// Package lookup runs keyed remote lookups where a newer request for the same
// key cancels the one still in flight.
package lookup

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned to a caller whose lookup was replaced by a newer one.
var ErrSuperseded = errors.New("lookup superseded by a newer request")

type call struct {
	id     uint64
	cancel context.CancelFunc
}

// Group tracks the in-flight lookup per key. The zero value is ready to use.
type Group struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]call
}

func (g *Group) begin(ctx context.Context, key string) (context.Context, uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight == nil {
		g.inflight = make(map[string]call)
	}
	if prev, ok := g.inflight[key]; ok {
		prev.cancel()
	}
	g.seq++
	ctx, cancel := context.WithCancel(ctx)
	g.inflight[key] = call{id: g.seq, cancel: cancel}
	return ctx, g.seq
}

// end releases the call and reports whether it was superseded.
func (g *Group) end(key string, id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.inflight[key]
	if ok && cur.id == id {
		cur.cancel()
		delete(g.inflight, key)
		return false
	}
	return true
}

// InFlight reports how many keys have a lookup running.
func (g *Group) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// Do runs fn for key, cancelling any lookup already running for that key.
// When fn's call is superseded while it runs, the caller gets ErrSuperseded
// and fn's result is discarded.
func Do[T any](ctx context.Context, g *Group, key string, fn func(context.Context) (T, error)) (T, error) {
	lookupCtx, id := g.begin(ctx, key)
	v, err := fn(lookupCtx)
	if g.end(key, id) {
		var zero T
		return zero, ErrSuperseded
	}
	return v, err
}
