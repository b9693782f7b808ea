package registry

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "apps.yaml"))
	require.NoError(t, err)
	assert.Empty(t, r.Entries)

	_, ok := r.Lookup("anything")
	assert.False(t, ok)
}

func TestRecordAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "apps.yaml")
	id1 := uuid.MustParse("dd0ba762-be5f-47a7-b0b2-15d1b0c9296f")
	id2 := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	r, err := Load(path)
	require.NoError(t, err)

	r.Record("Tide Watch", id1)
	r.Record("DozeFac", id2)
	require.NoError(t, r.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Entries, 2)

	got, ok := loaded.Lookup("Tide Watch")
	require.True(t, ok)
	assert.Equal(t, id1, got)
}

func TestRecordReplaces(t *testing.T) {
	r := &Registry{}
	id1 := uuid.MustParse("dd0ba762-be5f-47a7-b0b2-15d1b0c9296f")
	id2 := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	r.Record("Tide Watch", id1)
	r.Record("Tide Watch", id2)
	require.Len(t, r.Entries, 1)

	got, _ := r.Lookup("Tide Watch")
	assert.Equal(t, id2, got)
}
