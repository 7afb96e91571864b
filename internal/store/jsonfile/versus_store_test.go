package jsonfile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

func validParams() domain.VersusParams {
	return domain.VersusParams{
		AccountA: 100,
		AccountB: 200,
		Symbol:   "eurusd",
		Lots:     1,
		Side:     "buy",
		TPUSDA:   50,
		SLUSDA:   25,
		TPUSDB:   50,
		SLUSDB:   25,
	}
}

func newVersusStore(t *testing.T) *VersusStore {
	t.Helper()
	s, err := NewVersusStore(filepath.Join(t.TempDir(), "versus.json"), testLogger())
	require.NoError(t, err)
	return s
}

func TestVersusCreateNormalises(t *testing.T) {
	s := newVersusStore(t)

	rec, err := s.Create(validParams())
	require.NoError(t, err)

	assert.Len(t, rec.ID, 8)
	assert.Equal(t, "EURUSD", rec.Symbol)
	assert.Equal(t, domain.SideBuy, rec.Side)
	assert.Equal(t, domain.VersusPending, rec.Status)
	assert.Empty(t, rec.TicketsA)
	assert.Empty(t, rec.TicketsB)
}

func TestVersusCreateRejectsInvalid(t *testing.T) {
	s := newVersusStore(t)

	same := validParams()
	same.AccountB = same.AccountA
	_, err := s.Create(same)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	zeroLots := validParams()
	zeroLots.Lots = 0
	_, err = s.Create(zeroLots)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	badSide := validParams()
	badSide.Side = "HOLD"
	_, err = s.Create(badSide)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVersusUpdateStampsAndPersists(t *testing.T) {
	s := newVersusStore(t)

	rec, err := s.Create(validParams())
	require.NoError(t, err)

	updated, err := s.Update(rec.ID, func(r *domain.VersusRecord) {
		r.Status = domain.VersusCongelado
		r.TicketsA = []uint64{1001, 1002}
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VersusCongelado, updated.Status)
	assert.False(t, updated.UpdatedAt.Before(rec.UpdatedAt))

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1001, 1002}, got.TicketsA)
}

func TestVersusGetAndDeleteUnknown(t *testing.T) {
	s := newVersusStore(t)

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete("nope"), domain.ErrNotFound)
}

func TestVersusDueScans(t *testing.T) {
	s := newVersusStore(t)
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := validParams()
	due.ScheduledCongelar = &past
	dueRec, err := s.Create(due)
	require.NoError(t, err)

	notYet := validParams()
	notYet.AccountA, notYet.AccountB = 300, 400
	notYet.ScheduledCongelar = &future
	_, err = s.Create(notYet)
	require.NoError(t, err)

	unscheduled := validParams()
	unscheduled.AccountA, unscheduled.AccountB = 500, 600
	_, err = s.Create(unscheduled)
	require.NoError(t, err)

	congelar := s.DueCongelar(now)
	require.Len(t, congelar, 1)
	assert.Equal(t, dueRec.ID, congelar[0].ID)

	// A pending record is never due for Transferir.
	assert.Empty(t, s.DueTransferir(now))

	_, err = s.Update(dueRec.ID, func(r *domain.VersusRecord) {
		r.Status = domain.VersusCongelado
		r.ScheduledTransferir = &past
	})
	require.NoError(t, err)

	transferir := s.DueTransferir(now)
	require.Len(t, transferir, 1)
	assert.Equal(t, dueRec.ID, transferir[0].ID)
	assert.Empty(t, s.DueCongelar(now))
}
