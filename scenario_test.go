package rastercalc

import (
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise Operation/Align/Reduce end to end against the
// concrete scenarios described for the engine: a small arithmetic and
// reduction check, reprojection refusal/acceptance, the extent and
// cellsize reconciliation policies, the snap lattice tie-break, and
// NoData propagation.

func TestScenarioArithmeticAndReduction(t *testing.T) {
	godal.RegisterAll()
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))

	data := make([]float64, 100*100)
	for r := 0; r < 100; r++ {
		for c := 0; c < 100; c++ {
			data[r*100+c] = float64(r*100 + c + 1)
		}
	}
	g, err := ArrayRaster(env, [][]float64{data}, 100, 100, godal.Float32, nil, nil)
	require.NoError(t, err)
	defer g.Close()

	out, err := EvaluateExpression(env, "(g*2+1)/1", map[string]*Raster{"g": g.Raster})
	require.NoError(t, err)
	defer out.Close()

	tile, err := ReadTile(out.Raster, 0, 0, 1, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 3.0, tile.Data[0][0])

	sum, err := Reduce(env, ReduceSum, g.Raster)
	require.NoError(t, err)
	assert.Equal(t, 50005000.0, sum[0])

	maxVal, err := Reduce(env, ReduceMax, g.Raster)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, maxVal[0])
}

func TestScenarioReprojectionRefusalAndAcceptance(t *testing.T) {
	godal.RegisterAll()
	srGeo, err := godal.NewSpatialRefFromEPSG(4326)
	require.NoError(t, err)
	defer srGeo.Close()
	srMerc, err := godal.NewSpatialRefFromEPSG(3857)
	require.NoError(t, err)
	defer srMerc.Close()

	pathA := "/vsimem/rastercalc-scenario-reproj-a.tif"
	dsA, err := godal.Create(godal.GTiff, pathA, 1, godal.Float64, 20, 20)
	require.NoError(t, err)
	require.NoError(t, dsA.SetGeoTransform([6]float64{-10, 1, 0, 10, 0, -1}))
	require.NoError(t, dsA.SetSpatialRef(srGeo))
	require.NoError(t, dsA.Close())
	a, err := Open(pathA)
	require.NoError(t, err)
	defer a.Close()

	pathB := "/vsimem/rastercalc-scenario-reproj-b.tif"
	dsB, err := godal.Create(godal.GTiff, pathB, 1, godal.Float64, 20, 20)
	require.NoError(t, err)
	require.NoError(t, dsB.SetGeoTransform([6]float64{-2000000, 200000, 0, 2000000, 0, -200000}))
	require.NoError(t, dsB.SetSpatialRef(srMerc))
	require.NoError(t, dsB.Close())
	b, err := Open(pathB)
	require.NoError(t, err)
	defer b.Close()

	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))
	env.SetReproject(false)

	_, err = Operation(env, OpAdd, a, b)
	assertErrKind(t, err, SrsMismatch)

	env.SetReproject(true)
	out, err := Operation(env, OpAdd, a, b)
	require.NoError(t, err)
	defer out.Close()
	assert.True(t, out.SRS().IsSame(srGeo))
}

func TestScenarioExtentPolicy(t *testing.T) {
	godal.RegisterAll()
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))

	a := newTestRaster(t, "/vsimem/rastercalc-scenario-extent-a.tif", 10, 10, GeoTransform{0, 1, 0, 10, 0, -1})
	defer a.Close()
	b := newTestRaster(t, "/vsimem/rastercalc-scenario-extent-b.tif", 6, 6, GeoTransform{2, 1, 0, 8, 0, -1})
	defer b.Close()

	require.NoError(t, env.SetExtent("MINOF"))
	outMin, err := Operation(env, OpAdd, a, b)
	require.NoError(t, err)
	defer outMin.Close()
	assert.Equal(t, Extent{2, 2, 8, 8}, outMin.Extent())

	require.NoError(t, env.SetExtent("MAXOF"))
	outMax, err := Operation(env, OpAdd, a, b)
	require.NoError(t, err)
	defer outMax.Close()
	assert.Equal(t, Extent{0, 0, 10, 10}, outMax.Extent())

	env.SetExtentRect(Extent{1, 1, 5, 5})
	outExp, err := Operation(env, OpAdd, a, b)
	require.NoError(t, err)
	defer outExp.Close()
	assert.Equal(t, Extent{1, 1, 5, 5}, outExp.Extent())
}

func TestScenarioCellsizePolicy(t *testing.T) {
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))

	a := newTestRaster(t, "/vsimem/rastercalc-scenario-cellsize-a.tif", 10, 10, GeoTransform{0, 0.02, 0, 1, 0, -0.02})
	defer a.Close()
	b := newTestRaster(t, "/vsimem/rastercalc-scenario-cellsize-b.tif", 20, 20, GeoTransform{0, 0.01, 0, 1, 0, -0.01})
	defer b.Close()

	require.NoError(t, env.SetCellsize("MINOF"))
	ra, rb, err := reconcileCellsize(env, a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.01, ra.gt.PixelWidth())
	assert.Equal(t, 0.01, rb.gt.PixelWidth())

	require.NoError(t, env.SetCellsize("MAXOF"))
	ra2, rb2, err := reconcileCellsize(env, a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.02, ra2.gt.PixelWidth())
	assert.Equal(t, 0.02, rb2.gt.PixelWidth())

	env.SetCellsizeXY(0.015, 0.015)
	ra3, rb3, err := reconcileCellsize(env, a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.015, ra3.gt.PixelWidth())
	assert.Equal(t, -0.015, ra3.gt.PixelHeight())
	assert.Equal(t, 0.015, rb3.gt.PixelWidth())
	assert.Equal(t, -0.015, rb3.gt.PixelHeight())
}

func TestScenarioSnapLattice(t *testing.T) {
	godal.RegisterAll()
	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))

	a := newTestRaster(t, "/vsimem/rastercalc-scenario-snap-a.tif", 10, 10, GeoTransform{0, 1, 0, 10, 0, -1})
	defer a.Close()
	b := newTestRaster(t, "/vsimem/rastercalc-scenario-snap-b.tif", 10, 10, GeoTransform{0, 1, 0, 10, 0, -1})
	defer b.Close()
	snap := newTestRaster(t, "/vsimem/rastercalc-scenario-snap-s.tif", 4, 4, GeoTransform{0.3, 1, 0, 9.7, 0, -1})
	defer snap.Close()

	env.SetSnap(snap)
	env.SetExtentRect(Extent{1, 1, 5, 5})
	out, err := Operation(env, OpAdd, a, b)
	require.NoError(t, err)
	defer out.Close()

	ext := out.Extent()
	dx := (ext[0] - snap.gt[0]) / snap.gt.PixelWidth()
	dy := (ext[3] - snap.gt[3]) / snap.gt.PixelHeight()
	const eps = 1e-6
	assert.InDelta(t, 0, dx-float64(int(dx+0.5)), eps)
	assert.InDelta(t, 0, dy-float64(int(dy+0.5)), eps)
}

func TestScenarioNoData(t *testing.T) {
	godal.RegisterAll()

	path := "/vsimem/rastercalc-scenario-nodata-a.tif"
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float64, 2, 2)
	require.NoError(t, err)
	require.NoError(t, ds.Bands()[0].Write(0, 0, []float64{0, 1, 2, 3}, 2, 2))
	require.NoError(t, ds.Close())
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	env := NewEnvironment()
	require.NoError(t, env.SetTempdir(t.TempDir()))

	// Without Env.nodata, a raster with no NoData set adds normally: the
	// first pixel (0) becomes 1.
	out, err := EvaluateExpression(env, "a + 1", map[string]*Raster{"a": a})
	require.NoError(t, err)
	defer out.Close()
	tile, err := ReadTile(out.Raster, 0, 0, 2, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tile.Data[0][0])

	// Set NoData=0 and enable masking: the first pixel must now come back
	// as the output's NoData value, not as an arithmetic result.
	path2 := "/vsimem/rastercalc-scenario-nodata-b.tif"
	ds2, err := godal.Create(godal.GTiff, path2, 1, godal.Float64, 2, 2)
	require.NoError(t, err)
	require.NoError(t, ds2.Bands()[0].SetNoData(0))
	require.NoError(t, ds2.Bands()[0].Write(0, 0, []float64{0, 1, 2, 3}, 2, 2))
	require.NoError(t, ds2.Close())
	a2, err := Open(path2)
	require.NoError(t, err)
	defer a2.Close()

	env.SetNodata(true)
	out2, err := EvaluateExpression(env, "a + 1", map[string]*Raster{"a": a2})
	require.NoError(t, err)
	defer out2.Close()
	tile2, err := ReadTile(out2.Raster, 0, 0, 2, 2, true)
	require.NoError(t, err)
	assert.True(t, tile2.Masked[0][0])
	nd, hasND := out2.NoData(0)
	require.True(t, hasND)
	assert.Equal(t, 0.0, nd)
	assert.Equal(t, 0.0, tile2.Data[0][0])
}
