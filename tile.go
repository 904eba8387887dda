package rastercalc

import (
	"github.com/airbusgeo/godal"
)

// Tile is one streamed window of raster data: a rectangle of pixels for
// every selected band, plus enough bookkeeping for Operation to write the
// corresponding window back out.
type Tile struct {
	X0, Y0 int
	W, H   int
	// Data holds one []float64 per band, in row-major (y*W+x) order.
	// Values are always promoted to float64 regardless of the raster's
	// native data type, matching the original's numpy-array-of-float
	// working representation; promotion back to the narrower output type
	// happens once, when Operation writes the result tile.
	Data [][]float64
	// Masked marks NoData pixels (only meaningful when Env.Nodata is set).
	// Masked[b][i] is true where Data[b][i] should be treated as missing.
	Masked [][]bool
}

// newTileBuffer allocates an empty Tile for the given window and band
// count.
func newTileBuffer(x0, y0, w, h, nbands int) *Tile {
	t := &Tile{X0: x0, Y0: y0, W: w, H: h}
	t.Data = make([][]float64, nbands)
	t.Masked = make([][]bool, nbands)
	for b := range t.Data {
		t.Data[b] = make([]float64, w*h)
		t.Masked[b] = make([]bool, w*h)
	}
	return t
}

// ReadTile reads the window (x0,y0,w,h) of every selected band of r into a
// Tile, applying NoData masking when maskNodata is set.
func ReadTile(r *Raster, x0, y0, w, h int, maskNodata bool) (*Tile, error) {
	t := newTileBuffer(x0, y0, w, h, len(r.bands))
	allBands := r.ds.Bands()
	for bi, bandNum := range r.bands {
		band := allBands[bandNum-1]
		buf, err := readBandAsFloat64(band, x0, y0, w, h, r.dtype)
		if err != nil {
			return nil, wrapErr(IoError, err, "read band %d window (%d,%d,%d,%d)", bandNum, x0, y0, w, h)
		}
		t.Data[bi] = buf
		if maskNodata {
			if nd, ok := r.NoData(bi); ok {
				for i, v := range buf {
					if v == nd {
						t.Masked[bi][i] = true
					}
				}
			}
		}
	}
	return t, nil
}

// readBandAsFloat64 reads a window using a native-typed buffer (so godal
// performs any necessary driver-side decoding) and promotes it to float64.
func readBandAsFloat64(band godal.Band, x0, y0, w, h int, dtype godal.DataType) ([]float64, error) {
	n := w * h
	out := make([]float64, n)
	switch dtype {
	case godal.Byte:
		buf := make([]uint8, n)
		if err := band.Read(x0, y0, buf, w, h); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case godal.UInt16:
		buf := make([]uint16, n)
		if err := band.Read(x0, y0, buf, w, h); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case godal.Int16:
		buf := make([]int16, n)
		if err := band.Read(x0, y0, buf, w, h); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case godal.UInt32:
		buf := make([]uint32, n)
		if err := band.Read(x0, y0, buf, w, h); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case godal.Int32:
		buf := make([]int32, n)
		if err := band.Read(x0, y0, buf, w, h); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case godal.Float32:
		buf := make([]float32, n)
		if err := band.Read(x0, y0, buf, w, h); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case godal.Float64:
		if err := band.Read(x0, y0, out, w, h); err != nil {
			return nil, err
		}
	default:
		return nil, newErr(UnsupportedDtype, "unsupported read dtype %s", dtype)
	}
	return out, nil
}

// writeBandFromFloat64 demotes a []float64 buffer to dtype and writes it
// to band's window.
func writeBandFromFloat64(band godal.Band, x0, y0, w, h int, dtype godal.DataType, data []float64) error {
	switch dtype {
	case godal.Byte:
		buf := make([]uint8, len(data))
		for i, v := range data {
			buf[i] = uint8(v)
		}
		return band.Write(x0, y0, buf, w, h)
	case godal.UInt16:
		buf := make([]uint16, len(data))
		for i, v := range data {
			buf[i] = uint16(v)
		}
		return band.Write(x0, y0, buf, w, h)
	case godal.Int16:
		buf := make([]int16, len(data))
		for i, v := range data {
			buf[i] = int16(v)
		}
		return band.Write(x0, y0, buf, w, h)
	case godal.UInt32:
		buf := make([]uint32, len(data))
		for i, v := range data {
			buf[i] = uint32(v)
		}
		return band.Write(x0, y0, buf, w, h)
	case godal.Int32:
		buf := make([]int32, len(data))
		for i, v := range data {
			buf[i] = int32(v)
		}
		return band.Write(x0, y0, buf, w, h)
	case godal.Float32:
		buf := make([]float32, len(data))
		for i, v := range data {
			buf[i] = float32(v)
		}
		return band.Write(x0, y0, buf, w, h)
	case godal.Float64:
		return band.Write(x0, y0, data, w, h)
	default:
		return newErr(UnsupportedDtype, "unsupported write dtype %s", dtype)
	}
}
