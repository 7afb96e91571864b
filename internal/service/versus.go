package service

import (
	"context"
	"log/slog"

	"github.com/Sinfolonokojo/mt5-monitor/internal/cache"
	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/store/jsonfile"
	"github.com/Sinfolonokojo/mt5-monitor/internal/versus"
)

// VersusService fronts the versus store and engine for the HTTP layer.
type VersusService struct {
	store     *jsonfile.VersusStore
	engine    *versus.Engine
	cache     *cache.SmartCache
	broadcast Broadcaster
	enabled   bool
	logger    *slog.Logger
}

// NewVersusService wires the versus endpoints. broadcast may be nil.
func NewVersusService(
	store *jsonfile.VersusStore,
	engine *versus.Engine,
	c *cache.SmartCache,
	broadcast Broadcaster,
	enabled bool,
	logger *slog.Logger,
) *VersusService {
	return &VersusService{
		store:     store,
		engine:    engine,
		cache:     c,
		broadcast: broadcast,
		enabled:   enabled,
		logger:    logger.With(slog.String("component", "versus_service")),
	}
}

// Enabled reports the feature flag for the feature-status endpoint.
func (s *VersusService) Enabled() bool { return s.enabled }

// Create validates and persists a new pending record. Holder and prop-firm
// labels are captured from the cached snapshots at creation time so the
// record stays meaningful after the accounts rotate.
func (s *VersusService) Create(params domain.VersusParams) (domain.VersusRecord, error) {
	rec, err := s.store.Create(params)
	if err != nil {
		return domain.VersusRecord{}, err
	}

	if snapA, ok := s.cache.GetAccount(rec.AccountA); ok {
		if snapB, okB := s.cache.GetAccount(rec.AccountB); okB {
			rec, err = s.store.Update(rec.ID, func(r *domain.VersusRecord) {
				r.HolderA, r.PropFirmA = snapA.Holder, snapA.PropFirm
				r.HolderB, r.PropFirmB = snapB.Holder, snapB.PropFirm
			})
			if err != nil {
				return domain.VersusRecord{}, err
			}
		}
	}

	s.announce(rec)
	return rec, nil
}

// List returns every record in creation order.
func (s *VersusService) List() []domain.VersusRecord {
	return s.store.All()
}

// Delete removes a record in any state.
func (s *VersusService) Delete(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if s.broadcast != nil {
		s.broadcast.Broadcast("versus_updated", map[string]string{"id": id, "deleted": "true"})
	}
	return nil
}

// Congelar executes step 1 immediately.
func (s *VersusService) Congelar(ctx context.Context, id string) (domain.VersusRecord, error) {
	rec, err := s.engine.Congelar(ctx, id)
	if err == nil {
		s.announce(rec)
	}
	return rec, err
}

// Transferir executes step 2 immediately.
func (s *VersusService) Transferir(ctx context.Context, id string) (domain.VersusRecord, error) {
	rec, err := s.engine.Transferir(ctx, id)
	if err == nil {
		s.announce(rec)
	}
	return rec, err
}

func (s *VersusService) announce(rec domain.VersusRecord) {
	if s.broadcast == nil {
		return
	}
	s.broadcast.Broadcast("versus_updated", map[string]string{
		"id":     rec.ID,
		"status": string(rec.Status),
	})
}
