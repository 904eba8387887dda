package rastercalc

import (
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReportsStructure(t *testing.T) {
	godal.RegisterAll()
	path := "/vsimem/rastercalc-raster-test.tif"
	ds, err := godal.Create(godal.GTiff, path, 2, godal.Byte, 4, 3)
	require.NoError(t, err)
	require.NoError(t, ds.SetGeoTransform([6]float64{10, 2, 0, 20, 0, -2}))
	require.NoError(t, ds.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	bands, h, w := r.Shape()
	assert.Equal(t, 2, bands)
	assert.Equal(t, 3, h)
	assert.Equal(t, 4, w)
	assert.Equal(t, godal.Byte, r.DataType())
	assert.Equal(t, Extent{10, 14, 18, 20}, r.Extent())
	assert.Equal(t, path, r.Path())
}

func TestNoDataDefaultsToUnset(t *testing.T) {
	godal.RegisterAll()
	path := "/vsimem/rastercalc-raster-nodata-test.tif"
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Byte, 2, 2)
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.NoData(0)
	assert.False(t, ok)
}
