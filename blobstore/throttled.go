package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled wraps a Store and limits write throughput to a fixed number of
// bytes per second. Reads pass through untouched. Useful when snapshot
// uploads share bandwidth with interactive traffic.
type Throttled struct {
	inner   Store
	limiter *rate.Limiter
}

// NewThrottled returns a store whose writes are limited to bytesPerSecond,
// with bursts up to burst bytes. A single Write larger than burst is split
// into burst-sized waits.
func NewThrottled(inner Store, bytesPerSecond float64, burst int) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
	}
}

func (t *Throttled) Open(ctx context.Context, name string) (Blob, error) {
	return t.inner.Open(ctx, name)
}

func (t *Throttled) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := t.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledWritableBlob{inner: w, limiter: t.limiter, ctx: ctx}, nil
}

func (t *Throttled) Put(ctx context.Context, name string, data []byte) error {
	if err := waitBytes(ctx, t.limiter, len(data)); err != nil {
		return err
	}
	return t.inner.Put(ctx, name, data)
}

func (t *Throttled) Delete(ctx context.Context, name string) error {
	return t.inner.Delete(ctx, name)
}

func (t *Throttled) List(ctx context.Context, prefix string) ([]string, error) {
	return t.inner.List(ctx, prefix)
}

// waitBytes blocks until n bytes of budget are available, splitting requests
// larger than the limiter burst.
func waitBytes(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

type throttledWritableBlob struct {
	inner   WritableBlob
	limiter *rate.Limiter
	ctx     context.Context
}

func (w *throttledWritableBlob) Write(p []byte) (int, error) {
	if err := waitBytes(w.ctx, w.limiter, len(p)); err != nil {
		return 0, err
	}
	return w.inner.Write(p)
}

func (w *throttledWritableBlob) Close() error {
	return w.inner.Close()
}

var _ Store = (*Throttled)(nil)
