// Package background runs fire-and-forget side effects (impression writes,
// notifications) outside the request that triggered them.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/monitoring"
)

// Runner starts detached effects. Failures are logged and counted, never
// returned to the caller.
type Runner struct {
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(log *zap.Logger, timeout time.Duration) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{log: log, timeout: timeout}
}

// Go runs fn in its own goroutine with a fresh context bounded by the runner
// timeout. The caller's context is not inherited: the request may finish first.
func (r *Runner) Go(kind string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.run(ctx, fn); err != nil {
			monitoring.BackgroundEffectsFailed.WithLabelValues(kind).Inc()
			r.log.Warn("background effect failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func (r *Runner) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every started effect has finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
