package detection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLifeListCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifelist.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestLoadLifeList(t *testing.T) {
	path := writeLifeListCSV(t,
		"1,2026-08-01,Garden,European Robin,Erithacus rubecula\n"+
			"2,2026-08-02,Garden,Eurasian Wren,Troglodytes troglodytes\n")

	list, err := LoadLifeList(path)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())

	assert.True(t, list.Contains("Erithacus rubecula"))
	assert.True(t, list.Contains("TROGLODYTES TROGLODYTES"), "matching is case-insensitive")
	assert.False(t, list.Contains("Parus major"))
}

func TestLoadLifeListSkipsShortRecords(t *testing.T) {
	path := writeLifeListCSV(t, "only,three,columns\n")

	list, err := LoadLifeList(path)
	require.NoError(t, err)
	assert.Zero(t, list.Len())
}

func TestLoadLifeListErrors(t *testing.T) {
	_, err := LoadLifeList("")
	assert.Error(t, err, "empty path is a configuration error")

	_, err = LoadLifeList(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLifeListNilSafe(t *testing.T) {
	var list *LifeList
	assert.False(t, list.Contains("Erithacus rubecula"))
	assert.Zero(t, list.Len())
}
