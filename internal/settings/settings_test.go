package settings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-table-orders/internal/store"
)

func TestLoad_DefaultsOnFirstBoot(t *testing.T) {
	s, err := store.Open(t.TempDir(), nil)
	require.NoError(t, err)

	p, err := Load(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTables, p.MaxTables())
	assert.True(t, p.Current().PizzeriaMenuEnabled)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	s, err := store.Open(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(CollectionName), []byte(`{"maxTables": 8, "pubClosed": true}`), 0o644))

	p, err := Load(s)
	require.NoError(t, err)
	assert.Equal(t, 8, p.MaxTables())
	assert.True(t, p.Current().PubClosed)
}

func TestMaxTables_NonPositiveFallsBack(t *testing.T) {
	p := NewProvider(Settings{MaxTables: 0})
	assert.Equal(t, DefaultMaxTables, p.MaxTables())
}
