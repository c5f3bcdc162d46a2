package repair

import (
	"context"
	"sync"
)

// Readiness is the shared outcome of the engine load. It resolves once.
type Readiness struct {
	done    chan struct{}
	once    sync.Once
	version string
	err     error
}

func newReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

func (r *Readiness) resolve(version string, err error) {
	r.once.Do(func() {
		r.version = version
		r.err = err
		close(r.done)
	})
}

func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the load finished or ctx ends, returning the load error.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the load error, nil while still loading.
func (r *Readiness) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

func (r *Readiness) Loaded() bool {
	select {
	case <-r.done:
		return r.err == nil
	default:
		return false
	}
}

func (r *Readiness) Version() string {
	select {
	case <-r.done:
		return r.version
	default:
		return ""
	}
}
