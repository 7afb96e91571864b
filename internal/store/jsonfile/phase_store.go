package jsonfile

import (
	"log/slog"
	"strconv"
	"sync"
)

// DefaultPhase is reported for accounts with no stored phase.
const DefaultPhase = "F1"

// PhaseStore persists per-account phase labels. The file holds a flat object
// keyed by the decimal account id.
type PhaseStore struct {
	mu     sync.Mutex
	path   string
	phases map[string]string
	logger *slog.Logger
}

// NewPhaseStore loads (or initialises) the phase file at path.
func NewPhaseStore(path string, logger *slog.Logger) (*PhaseStore, error) {
	s := &PhaseStore{
		path:   path,
		phases: make(map[string]string),
		logger: logger.With(slog.String("component", "phase_store")),
	}
	if err := load(path, &s.phases); err != nil {
		return nil, err
	}
	s.logger.Info("loaded phase values", slog.Int("count", len(s.phases)))
	return s, nil
}

// Get returns the phase for an account, defaulting to "F1".
func (s *PhaseStore) Get(accountID uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.phases[key(accountID)]; ok {
		return p
	}
	return DefaultPhase
}

// Update overwrites an account's phase and persists synchronously.
func (s *PhaseStore) Update(accountID uint64, phase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[key(accountID)] = phase
	return save(s.path, s.phases)
}

// All returns a copy of every stored phase keyed by account id.
func (s *PhaseStore) All() map[uint64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]string, len(s.phases))
	for k, v := range s.phases {
		if id, err := strconv.ParseUint(k, 10, 64); err == nil {
			out[id] = v
		}
	}
	return out
}

func key(accountID uint64) string {
	return strconv.FormatUint(accountID, 10)
}
