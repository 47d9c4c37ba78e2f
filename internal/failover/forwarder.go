// Package failover relays a request to a randomly chosen peer instance and
// hands the peer's answer back unchanged.
package failover

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banshee-data/track.report/internal/httputil"
	"github.com/banshee-data/track.report/internal/monitoring"
)

var forwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trackreport_failover_forwarded_total",
	Help: "Requests relayed to a peer instance, by outcome.",
}, []string{"outcome"})

// Peer is one candidate instance.
type Peer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (p Peer) String() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Config controls balancing. It is injected at construction and never read
// from globals.
type Config struct {
	Enabled bool
	Peers   []Peer
}

// Forwarder relays balanced requests to peers.
type Forwarder struct {
	cfg    Config
	client httputil.HTTPClient
	// pick returns a uniform index in [0, n).
	pick func(n int) int
}

// New creates a Forwarder. Peers are picked uniformly at random.
func New(cfg Config, client httputil.HTTPClient) *Forwarder {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &Forwarder{cfg: cfg, client: client, pick: rand.IntN}
}

// Active reports whether a request asking for balancing should be relayed.
func (f *Forwarder) Active(balance bool) bool {
	return balance && f.cfg.Enabled && len(f.cfg.Peers) > 0
}

// RewriteURI returns the request URI of u with the balancing flag cleared,
// so the peer serves the request itself instead of forwarding it again. The
// flag is matched on the decoded query, whatever its encoding on the wire.
func RewriteURI(u *url.URL) string {
	q := u.Query()
	if !q.Has("is_balance") {
		return u.RequestURI()
	}
	q.Set("is_balance", "0")
	out := *u
	out.RawQuery = q.Encode()
	return out.RequestURI()
}

// Target picks a peer and builds the URL the request is relayed to.
func (f *Forwarder) Target(u *url.URL) (string, error) {
	if len(f.cfg.Peers) == 0 {
		return "", fmt.Errorf("no balancing peers configured")
	}
	peer := f.cfg.Peers[f.pick(len(f.cfg.Peers))]
	return "http://" + peer.String() + RewriteURI(u), nil
}

// Forward relays r to a peer and copies the peer's status code, content type
// and body to w. Upstream failures are returned as-is and nothing is written
// to w in that case; the caller decides how to fail.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	target, err := f.Target(r.URL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		forwarded.WithLabelValues("error").Inc()
		return fmt.Errorf("relay to %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		forwarded.WithLabelValues("error").Inc()
		return fmt.Errorf("read relay response from %s: %w", req.URL.Host, err)
	}

	forwarded.WithLabelValues("ok").Inc()
	monitoring.Debugf("relayed %s to %s: %d (%d bytes)", r.URL.Path, req.URL.Host, resp.StatusCode, len(body))
	httputil.WriteBytes(w, resp.StatusCode, resp.Header.Get("Content-Type"), body)
	return nil
}
