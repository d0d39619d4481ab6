package agent

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"github.com/dmitrijs2005/sitemapkeeper/internal/updatechannel"
)

// Registration owns the active and waiting agent versions for one scope
// and the set of clients currently attached to it.
//
// It implements updatechannel.Listener so the broker can report client
// arrivals, departures and SKIP_WAITING requests.
type Registration struct {
	logger logging.Logger

	mu      sync.Mutex
	active  *Agent
	waiting *Agent
	clients map[string]struct{}
}

func NewRegistration(logger logging.Logger) *Registration {
	return &Registration{logger: logger, clients: make(map[string]struct{})}
}

// Register installs a and places it. The first version activates at once;
// a later one waits unless no client is attached. A failed install leaves
// the current versions untouched.
func (r *Registration) Register(ctx context.Context, a *Agent) error {
	if err := a.Install(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := r.waiting; prev != nil {
		prev.Supersede()
		r.logger.Info(ctx, "waiting version replaced", "old", prev.Version(), "new", a.Version())
	}
	r.waiting = a

	if r.active == nil || len(r.clients) == 0 {
		return r.promoteLocked(ctx)
	}
	r.logger.Info(ctx, "version waiting", "version", a.Version(), "active", r.active.Version(), "clients", len(r.clients))
	return nil
}

// SkipWaiting activates the waiting version now. Without one it does nothing.
func (r *Registration) SkipWaiting(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiting == nil {
		return nil
	}
	return r.promoteLocked(ctx)
}

// promoteLocked retires the active version before the waiting one activates,
// so nothing writes to the old cache once activation has deleted it.
func (r *Registration) promoteLocked(ctx context.Context) error {
	next, prev := r.waiting, r.active
	if prev != nil {
		prev.Supersede()
	}
	if err := next.Activate(ctx); err != nil {
		if prev != nil {
			prev.reinstate()
		}
		return fmt.Errorf("activate %s: %w", next.Version(), err)
	}
	r.active = next
	r.waiting = nil
	return nil
}

// Restore installs a, whose cache survived a restart, as the active version.
// It only applies before anything else became active.
func (r *Registration) Restore(ctx context.Context, a *Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return fmt.Errorf("restore %s over active %s: %w", a.Version(), r.active.Version(), common.ErrInvalidState)
	}
	if err := a.Restore(ctx); err != nil {
		return err
	}
	r.active = a
	return nil
}

// Active returns the serving version, or nil before the first install.
func (r *Registration) Active() *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Waiting returns the parked version, if any.
func (r *Registration) Waiting() *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting
}

// Clients returns the number of attached clients.
func (r *Registration) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Transport returns a RoundTripper that routes through whichever version is
// active at request time, or straight to network when none is.
func (r *Registration) Transport(network http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if a := r.Active(); a != nil {
			return a.RoundTrip(req)
		}
		return network.RoundTrip(req)
	})
}

func (r *Registration) ClientConnected(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = struct{}{}
}

// ClientDisconnected promotes a waiting version once the last client is gone.
func (r *Registration) ClientDisconnected(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	if len(r.clients) > 0 || r.waiting == nil {
		return
	}
	if err := r.promoteLocked(ctx); err != nil {
		r.logger.Error(ctx, "promotion after last client left failed", "err", err)
	}
}

func (r *Registration) HandleMessage(ctx context.Context, from string, msg updatechannel.Message) {
	switch msg.Type {
	case updatechannel.TypeSkipWaiting:
		if err := r.SkipWaiting(ctx); err != nil {
			r.logger.Error(ctx, "skip waiting failed", "client", from, "err", err)
		}
	default:
		r.logger.Debug(ctx, "ignoring channel message", "client", from, "type", msg.Type)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
