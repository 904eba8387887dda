package rastercalc

import "math"

// Extent is an axis-aligned bounding rectangle in a dataset's SRS,
// ordered [xmin, ymin, xmax, ymax].
type Extent [4]float64

// GeoTransform is GDAL's 6-element affine pixel-to-map transform:
// [originX, pixelWidth, rowRotation, originY, colRotation, pixelHeight].
type GeoTransform [6]float64

// PixelWidth returns the (signed) pixel size in the X axis.
func (gt GeoTransform) PixelWidth() float64 { return gt[1] }

// PixelHeight returns the (signed) pixel size in the Y axis (negative for
// north-up rasters).
func (gt GeoTransform) PixelHeight() float64 { return gt[5] }

// ExtentOf derives the map extent of a raster of the given pixel
// dimensions under gt, mirroring GeoTransformToExtent in the original
// geometry helpers.
func ExtentOf(gt GeoTransform, xsize, ysize int) Extent {
	x0 := gt[0]
	y0 := gt[3]
	x1 := gt[0] + float64(xsize)*gt[1] + float64(ysize)*gt[2]
	y1 := gt[3] + float64(xsize)*gt[4] + float64(ysize)*gt[5]
	return Extent{math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)}
}

// MapToPixel converts a map-space coordinate to a fractional pixel
// coordinate under gt. Only valid for north-up, non-rotated geotransforms
// (rowRotation == colRotation == 0), which is all rastercalc ever
// constructs or accepts for alignment purposes.
func MapToPixel(gt GeoTransform, mx, my float64) (px, py float64) {
	px = (mx - gt[0]) / gt[1]
	py = (my - gt[3]) / gt[5]
	return
}

// Intersects reports whether two extents overlap.
func (e Extent) Intersects(o Extent) bool {
	return e[0] < o[2] && e[2] > o[0] && e[1] < o[3] && e[3] > o[1]
}

// Min returns the intersection of two extents. Callers must check
// Intersects first.
func (e Extent) Min(o Extent) Extent {
	return Extent{
		math.Max(e[0], o[0]),
		math.Max(e[1], o[1]),
		math.Min(e[2], o[2]),
		math.Min(e[3], o[3]),
	}
}

// Max returns the union (bounding box) of two extents.
func (e Extent) Max(o Extent) Extent {
	return Extent{
		math.Min(e[0], o[0]),
		math.Min(e[1], o[1]),
		math.Max(e[2], o[2]),
		math.Max(e[3], o[3]),
	}
}

// Snap rounds e outward to the pixel grid implied by origin gt and the
// given pixel sizes, so a clip extent always lands on whole-pixel
// boundaries of the reference grid. Mirrors SnapExtent in the Python
// original.
func (e Extent) Snap(gt GeoTransform) Extent {
	px := gt[1]
	py := math.Abs(gt[5])
	snapped := Extent{
		math.Floor((e[0]-gt[0])/px)*px + gt[0],
		math.Ceil((e[1]-gt[3])/(-py))*(-py) + gt[3],
		math.Ceil((e[2]-gt[0])/px)*px + gt[0],
		math.Floor((e[3]-gt[3])/(-py))*(-py) + gt[3],
	}
	// restore min/max ordering since pixel height is negative
	if snapped[1] > snapped[3] {
		snapped[1], snapped[3] = snapped[3], snapped[1]
	}
	return snapped
}

// SizeAt returns the pixel dimensions of e at the given pixel size.
func (e Extent) SizeAt(pixelWidth, pixelHeight float64) (xsize, ysize int) {
	xsize = int(math.Round((e[2] - e[0]) / pixelWidth))
	ysize = int(math.Round((e[3] - e[1]) / math.Abs(pixelHeight)))
	return
}

// GeoTransformFor builds the geotransform that places extent e's top-left
// corner at the given pixel size.
func GeoTransformFor(e Extent, pixelWidth, pixelHeight float64) GeoTransform {
	return GeoTransform{e[0], pixelWidth, 0, e[3], 0, -math.Abs(pixelHeight)}
}
