// Package rastercalc evaluates arithmetic, comparison, and elementwise
// map-algebra expressions over raster datasets, reconciling differing
// extents, pixel sizes, and projections on the fly and streaming results
// tile by tile.
//
// Raster I/O, reprojection, and VRT assembly are delegated to
// github.com/airbusgeo/godal; this package only orchestrates those calls
// and owns the alignment, NoData-propagation, and kernel-dispatch logic
// that sit on top of them.
package rastercalc
