package session

import (
	"context"
	"sync"
	"time"
)

// DefaultRevalidateInterval is how often checkout-sensitive views re-verify
// the token against the server to catch revocation promptly.
const DefaultRevalidateInterval = 60 * time.Second

// Revalidator periodically forces a server-side identity check. It is owned
// by the view that needs fresh identity: Start on mount, Stop on unmount.
// Stop always reclaims the goroutine, so repeated mount/unmount cycles
// cannot leak timers.
type Revalidator struct {
	mgr      *Manager
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRevalidator(mgr *Manager, interval time.Duration) *Revalidator {
	if interval <= 0 {
		interval = DefaultRevalidateInterval
	}
	return &Revalidator{mgr: mgr, interval: interval}
}

// Start begins the periodic check. Starting an already running revalidator
// is a no-op.
func (r *Revalidator) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
}

// Stop cancels the loop and waits for it to exit. Safe to call when not
// running, and safe to call more than once.
func (r *Revalidator) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Revalidator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Forced checks are idempotent reads; running alongside a
			// foreground CheckAuthStatus is fine and needs no lock.
			r.mgr.CheckAuthStatus(ctx, true)
		case <-ctx.Done():
			return
		}
	}
}
