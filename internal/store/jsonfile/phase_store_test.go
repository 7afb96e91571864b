package jsonfile

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPhaseDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phases.json")

	s, err := NewPhaseStore(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, DefaultPhase, s.Get(100))
}

func TestPhaseUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phases.json")

	s, err := NewPhaseStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Update(100, "F2"))
	assert.Equal(t, "F2", s.Get(100))

	// A fresh store instance reads the same file back.
	reloaded, err := NewPhaseStore(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "F2", reloaded.Get(100))
	assert.Equal(t, DefaultPhase, reloaded.Get(200))
}

func TestPhaseAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phases.json")

	s, err := NewPhaseStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Update(100, "F1"))
	require.NoError(t, s.Update(200, "Funded"))

	all := s.All()
	assert.Equal(t, map[uint64]string{100: "F1", 200: "Funded"}, all)
}
