package rastercalc

import (
	"github.com/airbusgeo/godal"
)

// Raster is a lazy handle onto a single raster dataset: it carries enough
// metadata (size, geotransform, SRS, per-band NoData) to participate in
// alignment decisions without forcing any pixel data to be read until an
// Operation actually streams its tiles. It mirrors the "lazy dataset
// abstraction" described for component R.
type Raster struct {
	ds     *godal.Dataset
	path   string // re-openable identity, used as a VRT SimpleSource filename
	bands  []int // 1-based band numbers selected from ds, in order
	xsize  int
	ysize  int
	dtype  godal.DataType
	gt     GeoTransform
	srs    *godal.SpatialRef
	nodata []float64 // one per selected band; math.NaN() sentinel unused, see hasND
	hasND  []bool
	blockX int
	blockY int
}

// Open opens path with the underlying raster library and wraps it as a
// Raster selecting all of its bands.
func Open(path string, opts ...godal.OpenOption) (*Raster, error) {
	ds, err := godal.Open(path, opts...)
	if err != nil {
		return nil, wrapErr(IoError, err, "open %s", path)
	}
	return newRaster(ds, path, nil)
}

// Path returns the re-openable path this Raster was constructed from. VRT
// graphs reference a Raster by this path, so every Raster that will act
// as an operand must have been Open-ed or created through component T,
// never wrapped from a bare in-memory *godal.Dataset with no path.
func (r *Raster) Path() string { return r.path }

// newRaster builds a Raster from an already-open Dataset at path,
// selecting the given 1-based band numbers (or all bands, if bands is
// nil).
func newRaster(ds *godal.Dataset, path string, bands []int) (*Raster, error) {
	st := ds.Structure()
	if bands == nil {
		bands = make([]int, st.NBands)
		for i := range bands {
			bands[i] = i + 1
		}
	}
	gtArr, err := ds.GeoTransform()
	if err != nil {
		// Ungeoreferenced rasters default to the unit transform, matching
		// the original's tolerant behaviour for plain arrays.
		gtArr = [6]float64{0, 1, 0, 0, 0, -1}
	}
	r := &Raster{
		ds:     ds,
		path:   path,
		bands:  bands,
		xsize:  st.SizeX,
		ysize:  st.SizeY,
		dtype:  st.DataType,
		gt:     GeoTransform(gtArr),
		blockX: st.BlockSizeX,
		blockY: st.BlockSizeY,
	}
	if sr := ds.SpatialRef(); sr != nil {
		r.srs = sr
	}
	allBands := ds.Bands()
	r.nodata = make([]float64, len(bands))
	r.hasND = make([]bool, len(bands))
	for i, b := range bands {
		if b-1 < 0 || b-1 >= len(allBands) {
			return nil, newErr(InvalidConfig, "band %d out of range (dataset has %d bands)", b, len(allBands))
		}
		nd, ok := allBands[b-1].NoData()
		r.nodata[i] = nd
		r.hasND[i] = ok
	}
	return r, nil
}

// Dataset returns the underlying godal.Dataset.
func (r *Raster) Dataset() *godal.Dataset { return r.ds }

// Bands returns the 1-based band numbers this Raster selects.
func (r *Raster) Bands() []int { return r.bands }

// Shape returns (bands, height, width), always the full raster regardless
// of its native block layout -- see SPEC_FULL.md §9 on the tile-shape
// forwarding quirk.
func (r *Raster) Shape() (bands, height, width int) {
	return len(r.bands), r.ysize, r.xsize
}

// BlockShape returns the raster's native tile size, the separate explicit
// accessor for block geometry.
func (r *Raster) BlockShape() (blockX, blockY int) {
	return r.blockX, r.blockY
}

// DataType returns the raster's pixel data type.
func (r *Raster) DataType() godal.DataType { return r.dtype }

// GeoTransform returns the raster's affine pixel-to-map transform.
func (r *Raster) GeoTransform() GeoTransform { return r.gt }

// Extent returns the raster's map-space bounding rectangle.
func (r *Raster) Extent() Extent {
	return ExtentOf(r.gt, r.xsize, r.ysize)
}

// SRS returns the raster's spatial reference, or nil if unset.
func (r *Raster) SRS() *godal.SpatialRef { return r.srs }

// NoData returns band i's (0-based, among selected bands) NoData value
// and whether one is set.
func (r *Raster) NoData(i int) (float64, bool) {
	return r.nodata[i], r.hasND[i]
}

// Blocks returns the native tile iterator for this raster, one tile
// covering all selected bands at a time.
func (r *Raster) Blocks() godal.Block {
	return godal.BlockIterator(r.xsize, r.ysize, r.blockX, r.blockY)
}

// Close releases the underlying dataset handle.
func (r *Raster) Close() error {
	if r.srs != nil {
		r.srs.Close()
	}
	return r.ds.Close()
}
