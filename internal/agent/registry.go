package agent

import (
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/config"
)

// Registry is the static table of configured agents. It is built once at
// startup and never mutated afterwards, so lookups need no locking.
type Registry struct {
	clients map[string]*Client
	order   []string
}

// NewRegistry builds clients for every configured agent, all sharing the
// given pool and snapshot-fetch timeout.
func NewRegistry(agents []config.AgentConfig, pool *Pool, timeout time.Duration) *Registry {
	r := &Registry{
		clients: make(map[string]*Client, len(agents)),
		order:   make([]string, 0, len(agents)),
	}
	for _, a := range agents {
		r.clients[a.Name] = NewClient(a.Name, a.URL, pool, timeout)
		r.order = append(r.order, a.Name)
	}
	return r
}

// Resolve returns the client for the named agent.
func (r *Registry) Resolve(name string) (*Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}

// All returns every client in configuration order.
func (r *Registry) All() []*Client {
	out := make([]*Client, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.clients[name])
	}
	return out
}

// Len returns the number of configured agents.
func (r *Registry) Len() int { return len(r.order) }
