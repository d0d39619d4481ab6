package agent

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"github.com/gorilla/mux"
)

// Paths served by the agent itself rather than proxied.
const (
	ChannelPath = "/__agent/channel"
	MetricsPath = "/__agent/metrics"
	StatusPath  = "/__agent/status"
)

var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy maps incoming requests onto the origin and resolves them through a
// RoundTripper, normally Registration.Transport.
type Proxy struct {
	origin    *url.URL
	transport http.RoundTripper
	logger    logging.Logger
}

func NewProxy(origin *url.URL, transport http.RoundTripper, logger logging.Logger) *Proxy {
	return &Proxy{origin: origin, transport: transport, logger: logger}
}

// Target returns the URL r is fetched from: r's own URL for absolute-form
// (forward proxy) requests, otherwise its path and query on the origin.
func (p *Proxy) Target(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		u := *r.URL
		return &u
	}
	return p.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery})
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := p.Target(r)

	out := r.Clone(r.Context())
	out.URL = target
	out.Host = target.Host
	out.RequestURI = ""
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}

	resp, err := p.transport.RoundTrip(out)
	if err != nil {
		p.logger.Warn(r.Context(), "upstream request failed", "method", r.Method, "url", target.String(), "err", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Debug(r.Context(), "copy response body", "url", target.String(), "err", err)
	}
}

// Status is the JSON document served at StatusPath.
type Status struct {
	Active  string `json:"active,omitempty"`
	Waiting string `json:"waiting,omitempty"`
	Clients int    `json:"clients"`
}

// StatusHandler reports the registration's versions and client count.
func StatusHandler(reg *Registration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s Status
		if a := reg.Active(); a != nil {
			s.Active = a.Version()
		}
		if a := reg.Waiting(); a != nil {
			s.Waiting = a.Version()
		}
		s.Clients = reg.Clients()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s)
	})
}

// NewRouter wires the agent endpoints in front of the proxy.
func NewRouter(proxy http.Handler, channel, metrics, status http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	r.Handle(ChannelPath, channel)
	r.Handle(MetricsPath, metrics).Methods(http.MethodGet)
	r.Handle(StatusPath, status).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(proxy)
	return r
}
