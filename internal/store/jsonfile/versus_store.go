package jsonfile

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// VersusStore persists versus workflow records, keyed by their short id.
// Every mutation writes the whole file back.
type VersusStore struct {
	mu      sync.RWMutex
	path    string
	records map[string]domain.VersusRecord
	logger  *slog.Logger
}

// NewVersusStore loads (or initialises) the versus file at path.
func NewVersusStore(path string, logger *slog.Logger) (*VersusStore, error) {
	s := &VersusStore{
		path:    path,
		records: make(map[string]domain.VersusRecord),
		logger:  logger.With(slog.String("component", "versus_store")),
	}
	if err := load(path, &s.records); err != nil {
		return nil, err
	}
	s.logger.Info("loaded versus records", slog.Int("count", len(s.records)))
	return s, nil
}

// Create validates params, builds a pending record with a fresh short id, and
// persists it.
func (s *VersusStore) Create(params domain.VersusParams) (domain.VersusRecord, error) {
	if err := params.Validate(); err != nil {
		return domain.VersusRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := domain.VersusRecord{
		ID:                  uuid.NewString()[:8],
		AccountA:            params.AccountA,
		AccountB:            params.AccountB,
		Symbol:              strings.ToUpper(strings.TrimSpace(params.Symbol)),
		Lots:                params.Lots,
		Side:                domain.TradeSide(strings.ToUpper(string(params.Side))),
		TPUSDA:              params.TPUSDA,
		SLUSDA:              params.SLUSDA,
		TPUSDB:              params.TPUSDB,
		SLUSDB:              params.SLUSDB,
		Status:              domain.VersusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
		ScheduledCongelar:   params.ScheduledCongelar,
		ScheduledTransferir: params.ScheduledTransferir,
		TicketsA:            []uint64{},
		TicketsB:            []uint64{},
	}

	s.records[rec.ID] = rec
	if err := save(s.path, s.records); err != nil {
		delete(s.records, rec.ID)
		return domain.VersusRecord{}, err
	}

	s.logger.Info("created versus",
		slog.String("id", rec.ID),
		slog.Uint64("account_a", rec.AccountA),
		slog.Uint64("account_b", rec.AccountB),
		slog.String("symbol", rec.Symbol),
	)
	return rec, nil
}

// Get returns one record by id.
func (s *VersusStore) Get(id string) (domain.VersusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return domain.VersusRecord{}, fmt.Errorf("versus %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// All returns every record ordered by creation time.
func (s *VersusStore) All() []domain.VersusRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.VersusRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update applies fn to the stored record, stamps UpdatedAt, and persists.
// Returns the updated record.
func (s *VersusStore) Update(id string, fn func(*domain.VersusRecord)) (domain.VersusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return domain.VersusRecord{}, fmt.Errorf("versus %s: %w", id, domain.ErrNotFound)
	}

	fn(&rec)
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec

	if err := save(s.path, s.records); err != nil {
		return domain.VersusRecord{}, err
	}

	s.logger.Info("updated versus",
		slog.String("id", id),
		slog.String("status", string(rec.Status)),
	)
	return rec, nil
}

// Delete removes one record and persists.
func (s *VersusStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("versus %s: %w", id, domain.ErrNotFound)
	}
	delete(s.records, id)
	if err := save(s.path, s.records); err != nil {
		return err
	}
	s.logger.Info("deleted versus", slog.String("id", id))
	return nil
}

// DueCongelar returns pending records whose scheduled Congelar time has
// passed, in creation order.
func (s *VersusStore) DueCongelar(now time.Time) []domain.VersusRecord {
	return s.due(now, domain.VersusPending, func(r domain.VersusRecord) *time.Time {
		return r.ScheduledCongelar
	})
}

// DueTransferir returns congelado records whose scheduled Transferir time has
// passed, in creation order.
func (s *VersusStore) DueTransferir(now time.Time) []domain.VersusRecord {
	return s.due(now, domain.VersusCongelado, func(r domain.VersusRecord) *time.Time {
		return r.ScheduledTransferir
	})
}

func (s *VersusStore) due(now time.Time, status domain.VersusStatus, at func(domain.VersusRecord) *time.Time) []domain.VersusRecord {
	var out []domain.VersusRecord
	for _, rec := range s.All() {
		if rec.Status != status {
			continue
		}
		when := at(rec)
		if when != nil && !when.After(now) {
			out = append(out, rec)
		}
	}
	return out
}
