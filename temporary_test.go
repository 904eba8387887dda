package rastercalc

import (
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchPathLocalTempdir(t *testing.T) {
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))
	path, onDisk, err := scratchPath(env, 42)
	require.NoError(t, err)
	assert.Equal(t, path, onDisk)
	assert.Equal(t, env.Tempdir(), filepath.Dir(path))
}

func TestScratchPathRemoteTempdir(t *testing.T) {
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir("gs://bucket/scratch"))
	path, onDisk, err := scratchPath(env, 7)
	require.NoError(t, err)
	assert.Empty(t, onDisk)
	assert.Contains(t, path, "gs://bucket/scratch/")
}

func TestNewTemporaryRasterAndSave(t *testing.T) {
	godal.RegisterAll()
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))
	env.SetOverwrite(true)

	tmp, err := NewTemporaryRaster(env, 4, 3, 1, godal.Byte, nil)
	require.NoError(t, err)
	defer tmp.Close()

	bands, h, w := tmp.Shape()
	assert.Equal(t, 1, bands)
	assert.Equal(t, 3, h)
	assert.Equal(t, 4, w)

	out := filepath.Join(t.TempDir(), "out.tif")
	require.NoError(t, tmp.Save(env, out, godal.GTiff, nil))
}

func TestArrayRasterWritesPixels(t *testing.T) {
	godal.RegisterAll()
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))

	data := [][]float64{{1, 2, 3, 4}}
	tmp, err := ArrayRaster(env, data, 2, 2, godal.Float64, nil, nil)
	require.NoError(t, err)
	defer tmp.Close()

	tile, err := ReadTile(tmp.Raster, 0, 0, 2, 2, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, tile.Data[0])
}
