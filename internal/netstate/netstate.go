// Package netstate reports whether the note service is reachable and whether
// the current connection should be treated as metered.
package netstate

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single reachability probe.
const DefaultTimeout = 3 * time.Second

// Status is a connectivity snapshot.
type Status struct {
	Online  bool
	Metered bool
}

// Checker reports the current connectivity.
type Checker interface {
	Status(ctx context.Context) Status
}

// Fixed is a Checker that always reports the same status.
type Fixed Status

// Status implements Checker.
func (f Fixed) Status(context.Context) Status {
	return Status(f)
}

// Prober dials the remote host to decide whether the network is present.
// The metered flag cannot be observed from a desktop process and comes from
// configuration.
type Prober struct {
	addr    string
	metered bool
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMetered marks the connection as metered.
func WithMetered(metered bool) ProberOption {
	return func(p *Prober) {
		p.metered = metered
	}
}

// NewProber creates a Prober for the host of remoteURL.
func NewProber(remoteURL string, opts ...ProberOption) (*Prober, error) {
	addr, err := dialAddr(remoteURL)
	if err != nil {
		return nil, err
	}
	p := &Prober{
		addr:    addr,
		timeout: DefaultTimeout,
	}
	var d net.Dialer
	p.dial = d.DialContext
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Addr returns the host:port the prober dials.
func (p *Prober) Addr() string {
	return p.addr
}

// Status implements Checker.
func (p *Prober) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		slog.Debug("connectivity probe failed",
			"component", "netstate",
			"addr", p.addr,
			"error", err,
		)
		return Status{Online: false, Metered: p.metered}
	}
	_ = conn.Close()
	return Status{Online: true, Metered: p.metered}
}

// dialAddr derives host:port from a base URL, defaulting the port by scheme.
func dialAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse remote url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("remote url %q has no host", rawURL)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		default:
			return "", fmt.Errorf("remote url %q: unsupported scheme %q", rawURL, u.Scheme)
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
