package rastercalc

import (
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateExpressionArithmetic(t *testing.T) {
	godal.RegisterAll()
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))

	a, err := ArrayRaster(env, [][]float64{{1, 2, 3, 4}}, 2, 2, godal.Float64, nil, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := ArrayRaster(env, [][]float64{{10, 10, 10, 10}}, 2, 2, godal.Float64, nil, nil)
	require.NoError(t, err)
	defer b.Close()

	out, err := EvaluateExpression(env, "a + b", map[string]*Raster{
		"a": a.Raster,
		"b": b.Raster,
	})
	require.NoError(t, err)
	defer out.Close()

	tile, err := ReadTile(out.Raster, 0, 0, 2, 2, false)
	require.NoError(t, err)
	require.Equal(t, []float64{11, 12, 13, 14}, tile.Data[0])
}

func TestEvaluateExpressionFillsMaskedOutputWithNoData(t *testing.T) {
	godal.RegisterAll()

	path := "/vsimem/rastercalc-numexpr-nodata-a.tif"
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float64, 2, 2)
	require.NoError(t, err)
	band := ds.Bands()[0]
	require.NoError(t, band.SetNoData(-9999))
	require.NoError(t, band.Write(0, 0, []float64{1, -9999, 3, 4}, 2, 2))
	require.NoError(t, ds.Close())
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))
	env.SetNodata(true)

	out, err := EvaluateExpression(env, "a + 1", map[string]*Raster{"a": a})
	require.NoError(t, err)
	defer out.Close()

	tile, err := ReadTile(out.Raster, 0, 0, 2, 2, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -9999, 4, 5}, tile.Data[0])
}

func TestEvaluateExpressionRejectsUnboundGrids(t *testing.T) {
	env := NewEnvironment()
	a := &Raster{gt: GeoTransform{0, 10, 0, 100, 0, -10}, xsize: 2, ysize: 2}
	b := &Raster{gt: GeoTransform{0, 20, 0, 100, 0, -20}, xsize: 2, ysize: 2}

	_, err := EvaluateExpression(env, "a + b", map[string]*Raster{"a": a, "b": b})
	assertErrKind(t, err, IncompatibleCellsize)
}
