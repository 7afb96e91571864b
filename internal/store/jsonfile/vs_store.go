package jsonfile

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// VSStore persists per-account vs_group labels. A non-empty group may be
// shared by at most two accounts; assigning an empty value removes the
// membership.
type VSStore struct {
	mu     sync.Mutex
	path   string
	groups map[string]string
	logger *slog.Logger
}

// NewVSStore loads (or initialises) the vs file at path.
func NewVSStore(path string, logger *slog.Logger) (*VSStore, error) {
	s := &VSStore{
		path:   path,
		groups: make(map[string]string),
		logger: logger.With(slog.String("component", "vs_store")),
	}
	if err := load(path, &s.groups); err != nil {
		return nil, err
	}
	s.logger.Info("loaded vs values", slog.Int("count", len(s.groups)))
	return s, nil
}

// Get returns the vs_group for an account, or false when absent.
func (s *VSStore) Get(accountID uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[key(accountID)]
	return g, ok
}

// Update assigns an account to a vs group and persists. An empty value
// removes the mapping. Assignment is refused with domain.ErrVSGroupFull when
// two other accounts already hold the group.
func (s *VSStore) Update(accountID uint64, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := key(accountID)
	group = strings.TrimSpace(group)

	if group == "" {
		if _, ok := s.groups[id]; !ok {
			return nil
		}
		delete(s.groups, id)
		s.logger.Info("removed vs group", slog.Uint64("account_id", accountID))
		return save(s.path, s.groups)
	}

	others := 0
	for acc, g := range s.groups {
		if g == group && acc != id {
			others++
		}
	}
	if others >= 2 {
		return fmt.Errorf("%w: vs group %q already has 2 accounts assigned", domain.ErrVSGroupFull, group)
	}

	s.groups[id] = group
	s.logger.Info("updated vs group",
		slog.Uint64("account_id", accountID),
		slog.String("vs_group", group),
	)
	return save(s.path, s.groups)
}

// All returns a copy of every membership keyed by account id.
func (s *VSStore) All() map[uint64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]string, len(s.groups))
	for k, v := range s.groups {
		if id, err := strconv.ParseUint(k, 10, 64); err == nil {
			out[id] = v
		}
	}
	return out
}
