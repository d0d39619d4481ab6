// Package agent implements the offline caching agent: a versioned
// response cache that is filled at install time from a fixed shell
// manifest, cleans up older versions on activation, and resolves every
// intercepted GET cache-first with read-through population and an offline
// fallback.
//
// Registration coordinates versions: a freshly installed version waits
// while an older one is serving clients and takes over on SKIP_WAITING or
// when the last client goes away.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/agent/cachestore"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"github.com/dmitrijs2005/sitemapkeeper/internal/updatechannel"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of one agent version.
type State int

const (
	StateNew State = iota
	StateInstalling
	StateWaiting
	StateActive
	StateSuperseded
	// StateRedundant is where a failed install ends up.
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateSuperseded:
		return "superseded"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CachePrefix prefixes every cache name.
const CachePrefix = "sitemap-generator-"

// CacheName is the cache owned by version.
func CacheName(version string) string {
	return CachePrefix + version
}

// installParallelism bounds concurrent manifest fetches.
const installParallelism = 4

// Broadcaster delivers a message to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg updatechannel.Message) int
}

// Options describe one agent version.
type Options struct {
	Version string
	// Scope is the absolute URL relative manifest entries resolve against.
	Scope *url.URL
	// Manifest lists the shell resources, absolute or relative to Scope.
	Manifest []string
	// RootDocument is served to navigations when the network is down.
	RootDocument string
}

// Agent is one version of the caching agent.
type Agent struct {
	version   string
	cacheName string
	manifest  []string
	root      string

	cache       cachestore.Storage
	network     http.RoundTripper
	broadcaster Broadcaster
	metrics     *Metrics
	logger      logging.Logger
	now         func() time.Time

	mu    sync.RWMutex
	state State
}

// New resolves the manifest and returns an agent in StateNew.
func New(opts Options, cache cachestore.Storage, network http.RoundTripper, b Broadcaster, m *Metrics, logger logging.Logger) (*Agent, error) {
	if opts.Version == "" {
		return nil, errors.New("agent version is required")
	}
	if opts.Scope == nil || !opts.Scope.IsAbs() {
		return nil, errors.New("agent scope must be an absolute URL")
	}

	manifest := make([]string, 0, len(opts.Manifest))
	for _, raw := range opts.Manifest {
		u, err := opts.Scope.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", raw, err)
		}
		manifest = append(manifest, u.String())
	}
	root, err := opts.Scope.Parse(opts.RootDocument)
	if err != nil {
		return nil, fmt.Errorf("root document %q: %w", opts.RootDocument, err)
	}

	return &Agent{
		version:     opts.Version,
		cacheName:   CacheName(opts.Version),
		manifest:    manifest,
		root:        root.String(),
		cache:       cache,
		network:     network,
		broadcaster: b,
		metrics:     m,
		logger:      logger.With("version", opts.Version),
		now:         time.Now,
		state:       StateNew,
	}, nil
}

func (a *Agent) Version() string   { return a.version }
func (a *Agent) CacheName() string { return a.cacheName }

// Manifest returns the resolved shell URLs.
func (a *Agent) Manifest() []string { return append([]string(nil), a.manifest...) }

func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Agent) transition(from, to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != from {
		return fmt.Errorf("%s -> %s from %s: %w", from, to, a.state, common.ErrInvalidState)
	}
	a.state = to
	return nil
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Install fetches every manifest resource and stores them in the version's
// cache in a single transaction. Any failed fetch or non-2xx response fails
// the whole install, nothing is stored, and the agent becomes redundant.
func (a *Agent) Install(ctx context.Context) error {
	if err := a.transition(StateNew, StateInstalling); err != nil {
		return err
	}
	a.logger.Info(ctx, "installing", "resources", len(a.manifest), "cache", a.cacheName)

	entries := make([]cachestore.Entry, len(a.manifest))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installParallelism)
	for i, u := range a.manifest {
		g.Go(func() error {
			e, err := a.fetchForCache(gctx, u)
			if err != nil {
				return err
			}
			entries[i] = *e
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = a.cache.PutAll(ctx, a.cacheName, entries)
	}
	if err != nil {
		a.setState(StateRedundant)
		a.metrics.Installs.WithLabelValues(a.version, "failed").Inc()
		a.logger.Error(ctx, "install failed", "err", err)
		return fmt.Errorf("%w: %v", common.ErrInstallFailed, err)
	}

	a.setState(StateWaiting)
	a.metrics.Installs.WithLabelValues(a.version, "ok").Inc()
	a.logger.Info(ctx, "installed")
	return nil
}

func (a *Agent) fetchForCache(ctx context.Context, rawURL string) (*cachestore.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.network.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if !cacheable(resp) {
		return nil, fmt.Errorf("fetch %s: status %s", rawURL, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return &cachestore.Entry{
		URL:      rawURL,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: a.now(),
	}, nil
}

// Activate deletes every cache other than this version's and tells all
// clients which version is now serving.
func (a *Agent) Activate(ctx context.Context) error {
	if err := a.transition(StateWaiting, StateActive); err != nil {
		return err
	}

	if err := a.dropStaleCaches(ctx); err != nil {
		a.setState(StateWaiting)
		return err
	}

	a.metrics.Activations.Inc()
	a.markActive()

	n := a.broadcaster.Broadcast(ctx, updatechannel.Updated(a.version))
	a.logger.Info(ctx, "activated", "notified", n)
	return nil
}

// Restore makes the version a previous run left in the cache active again
// without touching the network, so the shell survives a restart while the
// origin is unreachable. Caches of other versions are dropped as on
// activation. No client is notified. A missing cache yields
// common.ErrorNotFound and leaves the agent in StateNew.
func (a *Agent) Restore(ctx context.Context) error {
	keys, err := a.cache.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list caches: %w", err)
	}
	if !slices.Contains(keys, a.cacheName) {
		return fmt.Errorf("cache %s: %w", a.cacheName, common.ErrorNotFound)
	}
	if err := a.transition(StateNew, StateActive); err != nil {
		return err
	}
	if err := a.dropStaleCaches(ctx); err != nil {
		a.logger.Warn(ctx, "stale caches kept after restore", "err", err)
	}
	a.markActive()
	a.logger.Info(ctx, "restored from cache", "cache", a.cacheName)
	return nil
}

func (a *Agent) dropStaleCaches(ctx context.Context) error {
	keys, err := a.cache.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list caches: %w", err)
	}
	for _, k := range keys {
		if k == a.cacheName {
			continue
		}
		if err := a.cache.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete cache %s: %w", k, err)
		}
		a.logger.Info(ctx, "deleted stale cache", "cache", k)
	}
	return nil
}

func (a *Agent) markActive() {
	a.metrics.ActiveVersion.Reset()
	a.metrics.ActiveVersion.WithLabelValues(a.version).Set(1)
}

// Supersede retires an active or waiting version. It waits for a
// read-through write in progress, and none starts afterwards, so once it
// returns the version's cache can be deleted for good.
func (a *Agent) Supersede() {
	a.setState(StateSuperseded)
}

// reinstate undoes Supersede when the successor failed to activate.
func (a *Agent) reinstate() {
	a.setState(StateActive)
}

// storeIfActive writes a read-through entry while a holds the active state.
// It reports false when a was superseded in the meantime.
func (a *Agent) storeIfActive(ctx context.Context, e cachestore.Entry) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state != StateActive {
		return false, nil
	}
	return true, a.cache.Put(ctx, a.cacheName, e)
}

// RoundTrip resolves req the way an active agent does. Only GET requests
// to an active agent are intercepted; everything else goes straight to the
// network. A GET never returns an error: network failures end in the
// fallback response.
func (a *Agent) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Method != http.MethodGet || a.State() != StateActive {
		a.metrics.Fetches.WithLabelValues(resultPassthrough).Inc()
		return a.network.RoundTrip(req)
	}

	key := req.URL.String()
	e, err := a.cache.Match(ctx, a.cacheName, key)
	switch {
	case err == nil:
		a.metrics.Fetches.WithLabelValues(resultHit).Inc()
		return entryResponse(req, e), nil
	case !errors.Is(err, common.ErrorNotFound):
		a.logger.Warn(ctx, "cache lookup failed", "url", key, "err", err)
	}

	resp, err := a.network.RoundTrip(req)
	if err != nil {
		a.logger.Debug(ctx, "network fetch failed", "url", key, "err", err)
		return a.fallback(req), nil
	}
	if !cacheable(resp) {
		a.metrics.Fetches.WithLabelValues(resultUncached).Inc()
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		a.logger.Debug(ctx, "network body failed", "url", key, "err", err)
		return a.fallback(req), nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	stored, err := a.storeIfActive(ctx, cachestore.Entry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: a.now(),
	})
	switch {
	case err != nil:
		a.logger.Warn(ctx, "cache put failed", "url", key, "err", err)
	case !stored:
		a.logger.Debug(ctx, "superseded during fetch, not caching", "url", key)
	}
	a.metrics.Fetches.WithLabelValues(resultMiss).Inc()
	return resp, nil
}

func (a *Agent) fallback(req *http.Request) *http.Response {
	ctx := req.Context()
	if IsNavigation(req) {
		e, err := a.cache.Match(ctx, a.cacheName, a.root)
		if err == nil {
			a.metrics.Fetches.WithLabelValues(resultFallback).Inc()
			return entryResponse(req, e)
		}
		a.logger.Warn(ctx, "root document missing from cache", "url", a.root, "err", err)
	}
	a.metrics.Fetches.WithLabelValues(resultUnavailable).Inc()
	return offlineResponse(req)
}

// IsNavigation reports whether req loads a full document.
func IsNavigation(req *http.Request) bool {
	return req.Header.Get("Sec-Fetch-Dest") == "document" ||
		req.Header.Get("Sec-Fetch-Mode") == "navigate"
}

func cacheable(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func entryResponse(req *http.Request, e *cachestore.Entry) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func offlineResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:        "503 Offline",
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{},
		Body:          io.NopCloser(strings.NewReader("")),
		ContentLength: 0,
		Request:       req,
	}
}
