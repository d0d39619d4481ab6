// Package connectivity tracks whether the client is online and fans
// transitions out to subscribers. The monitor only remembers the last
// state it applied, so repeated samples of the same state are no-ops.
package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
)

// State is the connectivity state.
type State int

const (
	Unknown State = iota
	Online
	Offline
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Prober reports whether the network is reachable; nil means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// HTTPProber treats any HTTP response from URL as proof of connectivity.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.URL, err)
	}
	return resp.Body.Close()
}

// Handler is called with the new state after every transition.
type Handler func(ctx context.Context, s State)

// Monitor is the online/offline state machine.
type Monitor struct {
	prober       Prober
	probeTimeout time.Duration
	logger       logging.Logger

	mu       sync.RWMutex
	state    State
	handlers []Handler
}

// NewMonitor returns a monitor in the Unknown state.
func NewMonitor(p Prober, logger logging.Logger) *Monitor {
	return &Monitor{prober: p, probeTimeout: 3 * time.Second, logger: logger}
}

// OnChange registers h for future transitions.
func (m *Monitor) OnChange(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// State returns the last applied state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// ReadOnly reports whether mutating operations must be refused.
func (m *Monitor) ReadOnly() bool {
	return m.State() == Offline
}

// Sample probes the network once and returns the observed state without
// applying it.
func (m *Monitor) Sample(ctx context.Context) State {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	if err := m.prober.Probe(ctx); err != nil {
		m.logger.Debug(ctx, "connectivity probe failed", "err", err)
		return Offline
	}
	return Online
}

// Apply moves the monitor to s. Handlers run, in registration order, only
// when s differs from the last applied state. It reports whether a
// transition happened.
func (m *Monitor) Apply(ctx context.Context, s State) bool {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return false
	}
	prev := m.state
	m.state = s
	handlers := append([]Handler(nil), m.handlers...)
	m.mu.Unlock()

	m.logger.Info(ctx, "connectivity changed", "from", prev.String(), "to", s.String())
	for _, h := range handlers {
		h(ctx, s)
	}
	return true
}

// Run samples once immediately, then every interval, until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Apply(ctx, m.Sample(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Apply(ctx, m.Sample(ctx))
		case <-ctx.Done():
			return
		}
	}
}
