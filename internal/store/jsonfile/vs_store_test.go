package jsonfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

func TestVSGroupCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vs.json")

	s, err := NewVSStore(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Update(100, "G1"))
	require.NoError(t, s.Update(200, "G1"))

	err = s.Update(300, "G1")
	assert.ErrorIs(t, err, domain.ErrVSGroupFull)

	_, ok := s.Get(300)
	assert.False(t, ok)
}

func TestVSReassignSameAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vs.json")

	s, err := NewVSStore(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Update(100, "G1"))
	require.NoError(t, s.Update(200, "G1"))

	// Re-assigning a member of a full group is not a third member.
	require.NoError(t, s.Update(100, "G1"))
}

func TestVSEmptyValueRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vs.json")

	s, err := NewVSStore(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Update(100, "G1"))
	require.NoError(t, s.Update(100, ""))

	_, ok := s.Get(100)
	assert.False(t, ok)

	// Removing an absent mapping is a no-op.
	require.NoError(t, s.Update(100, ""))
}

func TestVSPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vs.json")

	s, err := NewVSStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Update(100, "G1"))

	reloaded, err := NewVSStore(path, testLogger())
	require.NoError(t, err)

	g, ok := reloaded.Get(100)
	require.True(t, ok)
	assert.Equal(t, "G1", g)
}
