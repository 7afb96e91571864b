// Package agent provides the outbound HTTP layer: a shared pooled client,
// the static agent registry, and the per-agent REST client.
package agent

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Pool owns the single shared http.Client used for all agent calls. The
// client is created lazily on first use and reuses connections across the
// whole fleet. Callers control per-call deadlines through the request
// context; the pool only fixes connect/idle behaviour.
type Pool struct {
	mu     sync.Mutex
	client *http.Client
}

// NewPool creates an empty pool. The underlying client is built on the first
// Client() call.
func NewPool() *Pool {
	return &Pool{}
}

// Client returns the shared HTTP client, creating it on first use.
func (p *Pool) Client() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		transport := &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxConnsPerHost:       100,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   50,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		}
		p.client = &http.Client{
			Transport: transport,
			// No global timeout: each call carries its own context deadline.
		}
	}
	return p.client
}

// Close drains idle connections. Safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.CloseIdleConnections()
	}
}
