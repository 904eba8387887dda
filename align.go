package rastercalc

import (
	"math"

	"github.com/airbusgeo/godal"
)

// Align reconciles two raster operands into a common grid per env's
// policies, returning the two operands to use in their place. It is the
// 5-step algorithm grounded on the original's RasterLike.check_extent:
//  1. reproject each operand whose SRS differs from the target SRS
//     (Env.SRS if set, else a's) onto it (or error, if Env.Reproject is
//     false)
//  2. reconcile cellsize per Env.Cellsize
//  3. verify the operands' extents overlap
//  4. compute the common extent per Env.Extent
//  5. clip either operand whose extent differs from the common extent
func Align(env *Environment, a, b *Raster) (*Raster, *Raster, error) {
	var err error

	// Step 1: SRS. target_srs is Env.srs if set, else L's (a's) own SRS;
	// any operand whose SRS differs from it is warped onto it.
	target := env.SRS()
	if target == nil {
		target = a.SRS()
	}
	a, err = reconcileSRS(env, target, a, a)
	if err != nil {
		return nil, nil, err
	}
	b, err = reconcileSRS(env, target, a, b)
	if err != nil {
		return nil, nil, err
	}

	// Step 2: cellsize.
	a, b, err = reconcileCellsize(env, a, b)
	if err != nil {
		return nil, nil, err
	}

	// Step 3: overlap.
	extA := a.Extent()
	extB := b.Extent()
	if !extA.Intersects(extB) {
		return nil, nil, newErr(NoOverlap, "operands do not overlap")
	}

	// Step 4: common extent.
	var common Extent
	policy, rect := env.Extent()
	switch policy {
	case ExtentMinOf, ExtentIntersect:
		common = extA.Min(extB)
	case ExtentMaxOf, ExtentUnion:
		common = extA.Max(extB)
	case ExtentExplicit:
		common = rect
	}
	snapGT := a.gt
	if s := env.Snap(); s != nil {
		snapGT = s.gt
	}
	common = common.Snap(snapGT)

	// Step 5: clip whichever operand doesn't already match.
	if extA != common {
		a, err = ClipRaster(a, common)
		if err != nil {
			return nil, nil, err
		}
	}
	if extB != common {
		b, err = ClipRaster(b, common)
		if err != nil {
			return nil, nil, err
		}
	}
	return a, b, nil
}

func sameSRS(a, b *godal.SpatialRef) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.IsSame(b)
}

// reconcileSRS warps r onto target if its own SRS doesn't already match,
// snapping to Env.snap if set, else to l (L, the leftmost operand), per
// §4.A step 1's "snap = Env.snap or L" tie-break.
func reconcileSRS(env *Environment, target *godal.SpatialRef, l, r *Raster) (*Raster, error) {
	if sameSRS(target, r.SRS()) {
		return r, nil
	}
	if !env.Reproject() {
		return nil, newErr(SrsMismatch, "operand SRS does not match the target SRS and Env.Reproject is false")
	}
	snap := env.Snap()
	if snap == nil {
		snap = l
	}
	// The snap raster's extent/pixel size are only meaningful in target's
	// coordinate space; fall back to an auto-computed extent otherwise.
	if !sameSRS(snap.SRS(), target) {
		snap = nil
	}
	return WarpRaster(r, target, env.Resampling(), snap)
}

// reconcileCellsize resamples a and/or b (via Warp) so both share one
// pixel size, per env's Cellsize policy (§4.A step 2):
//   - DEFAULT: psL (a's own pixel size) wins.
//   - MINOF/MAXOF: the finer/coarser of the two operands' pixel sizes wins.
//   - explicit: the user-supplied pixel size wins.
// Any operand not already on the target pixel size and lattice phase is
// replaced by a Warp to it, snapped to Env.snap if set, else a's (L's)
// lattice. When Env.snap is set, operands that already share a pixel size
// are still warped onto its lattice if they sit off it.
func reconcileCellsize(env *Environment, a, b *Raster) (*Raster, *Raster, error) {
	pxA, pyA := math.Abs(a.gt.PixelWidth()), math.Abs(a.gt.PixelHeight())
	pxB, pyB := math.Abs(b.gt.PixelWidth()), math.Abs(b.gt.PixelHeight())
	if pxA == pxB && pyA == pyB && env.Snap() == nil {
		return a, b, nil
	}

	anchor := env.Snap()
	if anchor == nil {
		anchor = a
	}

	var target [2]float64
	policy, explicit := env.Cellsize()
	switch policy {
	case CellsizeDefault:
		target = [2]float64{pxA, pyA}
	case CellsizeMinOf:
		if pxA*pyA <= pxB*pyB {
			target = [2]float64{pxA, pyA}
		} else {
			target = [2]float64{pxB, pyB}
		}
	case CellsizeMaxOf:
		if pxA*pyA >= pxB*pyB {
			target = [2]float64{pxA, pyA}
		} else {
			target = [2]float64{pxB, pyB}
		}
	case CellsizeExplicit:
		target = explicit
	default:
		return a, b, nil
	}

	var err error
	if a, err = warpToGrid(env, anchor, a, target); err != nil {
		return nil, nil, err
	}
	if b, err = warpToGrid(env, anchor, b, target); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// warpToGrid warps r to pixel size xy if it doesn't already match, aligned
// to anchor's lattice phase so that every operand reconciled against the
// same anchor lands on one shared grid.
func warpToGrid(env *Environment, anchor, r *Raster, xy [2]float64) (*Raster, error) {
	if matchesGrid(anchor, r, xy) {
		return r, nil
	}
	if r.SRS() != nil && anchor.SRS() != nil && !sameSRS(r.SRS(), anchor.SRS()) && !env.Reproject() {
		return nil, newErr(SrsMismatch, "cellsize reconciliation requires reprojection but Env.Reproject is false")
	}
	sr := r.SRS()
	if anchor.SRS() != nil {
		sr = anchor.SRS()
	}
	return WarpRaster(r, sr, env.Resampling(), snapGridFor(anchor, r, xy))
}

// matchesGrid reports whether r already sits on xy-sized pixels aligned to
// anchor's lattice phase, so a redundant warp can be skipped.
func matchesGrid(anchor, r *Raster, xy [2]float64) bool {
	if math.Abs(r.gt.PixelWidth()) != xy[0] || math.Abs(r.gt.PixelHeight()) != xy[1] {
		return false
	}
	const eps = 1e-6
	dx := (r.gt[0] - anchor.gt[0]) / xy[0]
	dy := (r.gt[3] - anchor.gt[3]) / xy[1]
	return math.Abs(dx-math.Round(dx)) < eps && math.Abs(dy-math.Round(dy)) < eps
}

// snapGridFor builds a synthetic Raster describing pixel size xy anchored
// to anchor's lattice origin and sized to cover r's own extent, used as a
// WarpRaster snap target so every operand warped against the same anchor
// ends up on the same pixel phase.
func snapGridFor(anchor, r *Raster, xy [2]float64) *Raster {
	sign := -1.0
	if anchor.gt.PixelHeight() > 0 {
		sign = 1.0
	}
	lattice := GeoTransform{anchor.gt[0], xy[0], 0, anchor.gt[3], 0, sign * xy[1]}
	ext := r.Extent().Snap(lattice)
	xsize, ysize := ext.SizeAt(xy[0], xy[1])
	gt := GeoTransformFor(ext, xy[0], xy[1])
	return &Raster{gt: gt, xsize: xsize, ysize: ysize, srs: r.SRS()}
}
