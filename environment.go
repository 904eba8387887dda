package rastercalc

import (
	"os"
	"strings"

	"github.com/airbusgeo/godal"
)

// ExtentPolicy controls how Operation reconciles the extents of two raster
// operands that do not already share one.
type ExtentPolicy int

const (
	// ExtentMinOf clips both operands to their common (intersecting) extent.
	ExtentMinOf ExtentPolicy = iota
	// ExtentMaxOf enlarges both operands to their union extent.
	ExtentMaxOf
	// ExtentIntersect is an alias of ExtentMinOf kept for symmetry with
	// the original's vocabulary.
	ExtentIntersect
	// ExtentUnion is an alias of ExtentMaxOf.
	ExtentUnion
	// ExtentExplicit means Env.extentRect names the exact extent to use;
	// both operands are clipped/enlarged to it.
	ExtentExplicit
)

// CellsizePolicy controls how Operation reconciles differing pixel sizes.
type CellsizePolicy int

const (
	// CellsizeDefault resamples the right operand to the left operand's
	// pixel size.
	CellsizeDefault CellsizePolicy = iota
	// CellsizeMinOf resamples to the smaller (finer) pixel size.
	CellsizeMinOf
	// CellsizeMaxOf resamples to the larger (coarser) pixel size.
	CellsizeMaxOf
	// CellsizeExplicit means Env.cellsizeXY names the exact pixel size.
	CellsizeExplicit
)

var resamplingNames = map[string]godal.ResamplingAlg{
	"NEAREST":     godal.Nearest,
	"BILINEAR":    godal.Bilinear,
	"CUBIC":       godal.Cubic,
	"CUBICSPLINE": godal.CubicSpline,
	"LANCZOS":     godal.Lanczos,
	"AVERAGE":     godal.Average,
	"MODE":        godal.Mode,
}

// Environment holds the process-wide policy knobs that govern how
// Operation reconciles mismatched operands. There is normally one
// Environment per process, created with NewEnvironment; nothing here is
// safe for concurrent mutation while an Operation is in flight.
type Environment struct {
	extent       ExtentPolicy
	extentRect   Extent
	cellsize     CellsizePolicy
	cellsizeXY   [2]float64
	resampling   godal.ResamplingAlg
	snap         *Raster
	srs          *godal.SpatialRef
	tempdir      string
	nodata       bool
	overwrite    bool
	progress     bool
	reproject    bool
	tiled        bool
	enableNumexpr bool
}

// NewEnvironment returns an Environment with the original library's
// defaults: MinOf extent policy, Default cellsize policy, nearest resampling, nodata
// masking off, overwrite off, progress off, reproject off, tiled on.
func NewEnvironment() *Environment {
	return &Environment{
		extent:     ExtentMinOf,
		cellsize:   CellsizeDefault,
		resampling: godal.Nearest,
		tiled:      true,
	}
}

// SetExtent configures the extent-reconciliation policy from a symbolic
// name ("MINOF", "MAXOF", "INTERSECT", "UNION") or an explicit rectangle.
func (e *Environment) SetExtent(policy string) error {
	switch strings.ToUpper(policy) {
	case "MINOF":
		e.extent = ExtentMinOf
	case "MAXOF":
		e.extent = ExtentMaxOf
	case "INTERSECT":
		e.extent = ExtentIntersect
	case "UNION":
		e.extent = ExtentUnion
	default:
		return newErr(InvalidConfig, "unknown extent policy %q", policy)
	}
	return nil
}

// SetExtentRect sets an explicit extent policy to the given rectangle.
func (e *Environment) SetExtentRect(rect Extent) {
	e.extent = ExtentExplicit
	e.extentRect = rect
}

// Extent returns the current extent policy and, if ExtentExplicit, the
// rectangle that goes with it.
func (e *Environment) Extent() (ExtentPolicy, Extent) {
	return e.extent, e.extentRect
}

// SetCellsize configures the cellsize-reconciliation policy from a symbolic
// name ("DEFAULT", "MINOF", "MAXOF") or an explicit (x,y) pixel size.
func (e *Environment) SetCellsize(policy string) error {
	switch strings.ToUpper(policy) {
	case "DEFAULT":
		e.cellsize = CellsizeDefault
	case "MINOF":
		e.cellsize = CellsizeMinOf
	case "MAXOF":
		e.cellsize = CellsizeMaxOf
	default:
		return newErr(InvalidConfig, "unknown cellsize policy %q", policy)
	}
	return nil
}

// SetCellsizeXY sets an explicit cellsize policy to the given pixel size.
func (e *Environment) SetCellsizeXY(x, y float64) {
	e.cellsize = CellsizeExplicit
	e.cellsizeXY = [2]float64{x, y}
}

// Cellsize returns the current cellsize policy and, if CellsizeExplicit,
// the pixel size that goes with it.
func (e *Environment) Cellsize() (CellsizePolicy, [2]float64) {
	return e.cellsize, e.cellsizeXY
}

// SetResampling sets the resampling algorithm used by Warp from a symbolic
// name. Valid names are NEAREST, BILINEAR, CUBIC, CUBICSPLINE, LANCZOS,
// AVERAGE, MODE.
func (e *Environment) SetResampling(name string) error {
	alg, ok := resamplingNames[strings.ToUpper(name)]
	if !ok {
		return newErr(InvalidConfig, "unknown resampling algorithm %q", name)
	}
	e.resampling = alg
	return nil
}

// Resampling returns the current resampling algorithm.
func (e *Environment) Resampling() godal.ResamplingAlg {
	return e.resampling
}

// SetSnap sets the raster whose pixel grid subsequent warps should align
// to. Passing nil clears it.
func (e *Environment) SetSnap(r *Raster) {
	e.snap = r
}

// Snap returns the current snap raster, or nil.
func (e *Environment) Snap() *Raster {
	return e.snap
}

// SetSRS sets the target SRS Alignment reconciles both operands to,
// overriding the default of the left operand's own SRS. Passing nil
// clears it.
func (e *Environment) SetSRS(sr *godal.SpatialRef) {
	e.srs = sr
}

// SRS returns the configured target SRS, or nil if unset (in which case
// Alignment targets the left operand's own SRS).
func (e *Environment) SRS() *godal.SpatialRef {
	return e.srs
}

// SetTempdir sets the directory (or gs:// bucket URI) under which scratch
// rasters are created. An empty string reverts to the OS default temp
// directory. A local path that does not name an existing directory is
// rejected with InvalidConfig, mirroring the original's
// "if not os.path.isdir(value): raise" validation.
func (e *Environment) SetTempdir(dir string) error {
	if dir == "" {
		e.tempdir = ""
		return nil
	}
	if strings.HasPrefix(dir, "gs://") {
		e.tempdir = dir
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return newErr(InvalidConfig, "tempdir %q is not a directory", dir)
	}
	e.tempdir = dir
	return nil
}

// Tempdir returns the configured scratch directory/bucket.
func (e *Environment) Tempdir() string { return e.tempdir }

// IsRemoteTempdir reports whether Tempdir names an object-store bucket
// rather than a local path.
func (e *Environment) IsRemoteTempdir() bool {
	return strings.HasPrefix(e.tempdir, "gs://")
}

// Nodata reports whether NoData masking is applied during operations.
func (e *Environment) Nodata() bool { return e.nodata }

// SetNodata toggles NoData masking.
func (e *Environment) SetNodata(v bool) { e.nodata = v }

// Overwrite reports whether Save may overwrite an existing output path.
func (e *Environment) Overwrite() bool { return e.overwrite }

// SetOverwrite toggles output overwrite.
func (e *Environment) SetOverwrite(v bool) { e.overwrite = v }

// Progress reports whether progress output is enabled. Operation and
// EvaluateExpression do not consult it; only the rastercalc command uses
// it, to decide whether to print its final status line.
func (e *Environment) Progress() bool { return e.progress }

// SetProgress toggles the progress meter.
func (e *Environment) SetProgress(v bool) { e.progress = v }

// Reproject reports whether mismatched SRS are silently reprojected
// (true) or treated as an error (false).
func (e *Environment) Reproject() bool { return e.reproject }

// SetReproject toggles automatic reprojection.
func (e *Environment) SetReproject(v bool) { e.reproject = v }

// Tiled reports whether the operation driver streams tile by tile (true)
// or reads whole arrays (false). EvaluateExpression always reads whole
// arrays, whatever this is set to.
func (e *Environment) Tiled() bool { return e.tiled }

// SetTiled toggles tiled streaming.
func (e *Environment) SetTiled(v bool) { e.tiled = v }

// EnableNumexpr reports whether the govaluate fast path is enabled.
// Operation never routes through the fast path, and EvaluateExpression
// runs whether or not this is set.
func (e *Environment) EnableNumexpr() bool { return e.enableNumexpr }

// SetEnableNumexpr toggles the govaluate fast-path flag.
func (e *Environment) SetEnableNumexpr(v bool) { e.enableNumexpr = v }
