package table

import (
	"archive/zip"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitroot/adfz/internal/adf"
)

func TestArtifactFilename(t *testing.T) {
	assert.Equal(t, "adf_z_nc.npz", Filename(adf.TrendNone))
	assert.Equal(t, "adf_z_ctt.npz", Filename(adf.TrendConstQuad))
}

// TestSaveLoadRoundtrip tests that a partially filled table survives the
// artifact encoding, NaN sentinel included
func TestSaveLoadRoundtrip(t *testing.T) {
	tbl, err := New(adf.TrendConstLin, []float64{25, 50, 75}, []int{40, 20}, 2)
	require.NoError(t, err)
	require.NoError(t, tbl.SetReplication(0, 0, []float64{-3, -2, -1}))
	require.NoError(t, tbl.SetReplication(0, 1, []float64{-3.5, -2.5, -1.5}))

	path := filepath.Join(t.TempDir(), Filename(tbl.Trend))
	require.NoError(t, Save(path, tbl))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Trend, got.Trend)
	assert.Equal(t, tbl.Percentiles, got.Percentiles)
	assert.Equal(t, tbl.Lengths, got.Lengths)
	assert.Equal(t, tbl.Reps, got.Reps)

	assert.True(t, got.ColumnComplete(0))
	assert.False(t, got.ColumnComplete(1))
	assert.Equal(t, -3.0, got.At(0, 0, 0))
	assert.Equal(t, -2.5, got.At(1, 0, 1))
	assert.True(t, math.IsNaN(got.At(0, 1, 0)))
}

func TestSaveOverwritesPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Filename(adf.TrendConst))

	first, err := New(adf.TrendConst, []float64{50}, []int{20}, 1)
	require.NoError(t, err)
	require.NoError(t, first.SetReplication(0, 0, []float64{-7}))
	require.NoError(t, Save(path, first))

	second, err := New(adf.TrendConst, []float64{50}, []int{20}, 1)
	require.NoError(t, err)
	require.NoError(t, second.SetReplication(0, 0, []float64{-9}))
	require.NoError(t, Save(path, second))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, -9.0, got.At(0, 0, 0))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")
}

func TestLoadMissingArtifact(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.npz"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.npz")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip archive"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadRejectsMissingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.npz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("unrelated.npy")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}
