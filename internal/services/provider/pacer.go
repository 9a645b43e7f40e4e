package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer enforces per-provider request spacing and allows at most one
// in-flight request per provider. It is shared by every caller of the
// chain, so the limits hold across concurrent refresh workers.
type Pacer struct {
	mu     sync.Mutex
	limits map[string]float64
	gates  map[string]*gate
}

type gate struct {
	limiter  *rate.Limiter
	inflight chan struct{}
}

// NewPacer creates a pacer. limits maps provider name to requests per
// second; a missing or non-positive entry means no spacing.
func NewPacer(limits map[string]float64) *Pacer {
	copied := make(map[string]float64, len(limits))
	for k, v := range limits {
		copied[k] = v
	}
	return &Pacer{
		limits: copied,
		gates:  make(map[string]*gate),
	}
}

func (p *Pacer) gateFor(name string) *gate {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.gates[name]; ok {
		return g
	}
	limit := rate.Inf
	if rps := p.limits[name]; rps > 0 {
		limit = rate.Limit(rps)
	}
	g := &gate{
		limiter:  rate.NewLimiter(limit, 1),
		inflight: make(chan struct{}, 1),
	}
	p.gates[name] = g
	return g
}

// Acquire blocks until a request to provider name may start. The returned
// release func must be called once the request completes.
func (p *Pacer) Acquire(ctx context.Context, name string) (func(), error) {
	g := p.gateFor(name)

	select {
	case g.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		<-g.inflight
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-g.inflight })
	}, nil
}
