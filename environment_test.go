package rastercalc

import (
	"os"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentDefaults(t *testing.T) {
	env := NewEnvironment()
	policy, _ := env.Extent()
	assert.Equal(t, ExtentMinOf, policy)
	assert.Equal(t, godal.Nearest, env.Resampling())
	assert.True(t, env.Tiled())
	assert.False(t, env.Nodata())
	assert.False(t, env.Overwrite())
	assert.False(t, env.Reproject())
}

func TestEnvironmentSetExtent(t *testing.T) {
	env := NewEnvironment()
	assert.NoError(t, env.SetExtent("maxof"))
	policy, _ := env.Extent()
	assert.Equal(t, ExtentMaxOf, policy)

	assert.Error(t, env.SetExtent("bogus"))
}

func TestEnvironmentSetResampling(t *testing.T) {
	env := NewEnvironment()
	assert.NoError(t, env.SetResampling("CUBIC"))
	assert.Equal(t, godal.Cubic, env.Resampling())

	assert.Error(t, env.SetResampling("bogus"))
}

func TestEnvironmentSetCellsizeExplicit(t *testing.T) {
	env := NewEnvironment()
	env.SetCellsizeXY(30, 30)
	policy, xy := env.Cellsize()
	assert.Equal(t, CellsizeExplicit, policy)
	assert.Equal(t, [2]float64{30, 30}, xy)
}

func TestEnvironmentTempdirRemote(t *testing.T) {
	env := NewEnvironment()
	assert.NoError(t, env.SetTempdir("gs://my-bucket/scratch"))
	assert.True(t, env.IsRemoteTempdir())

	assert.NoError(t, env.SetTempdir(t.TempDir()))
	assert.False(t, env.IsRemoteTempdir())
}

func TestEnvironmentTempdirRejectsNonDirectory(t *testing.T) {
	env := NewEnvironment()
	assert.Error(t, env.SetTempdir("/no/such/path/rastercalc-does-not-exist"))

	file := t.TempDir() + "/not-a-dir"
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, env.SetTempdir(file))
}

func TestEnvironmentTempdirEmptyRevertsToDefault(t *testing.T) {
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))
	require.NoError(t, env.SetTempdir(""))
	assert.Equal(t, "", env.Tempdir())
}
