package rastercalc

import (
	"github.com/airbusgeo/godal"
)

// Operation streams a, b (b may be nil for a unary operator) through op's
// kernel tile by tile, writing the result to a freshly allocated
// TemporaryRaster. It is the operation driver described for component D,
// grounded on the original's RasterLike.__operation__: align (binary ops
// only -- see SPEC_FULL.md §9's Open Question resolution), pick an output
// data type, iterate blocks, mask NoData, apply the kernel, write. It
// reports no progress, whatever Env.Progress is set to.
func Operation(env *Environment, op Operator, a *Raster, b *Raster) (*TemporaryRaster, error) {
	kernel, err := lookupBinary(op)
	if err != nil {
		return nil, err
	}

	if b != nil {
		a, b, err = Align(env, a, b)
		if err != nil {
			return nil, err
		}
	}

	outDType := outputDataType(op, a, b)
	_, h, w := a.Shape()
	nbands, _, _ := a.Shape()
	out, err := NewTemporaryRaster(env, w, h, nbands, outDType, a)
	if err != nil {
		return nil, err
	}

	if !env.Tiled() {
		if err := runWhole(env, kernel, a, b, out); err != nil {
			out.Close()
			return nil, err
		}
		return out, nil
	}

	if err := runTiled(env, kernel, a, b, out); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// Reduce folds a single raster through a reduction kernel, band by band,
// returning one float64 per band. Unary (no alignment), so it always runs
// against the operand's native grid -- never invoking the Alignment
// engine, per SPEC_FULL.md §9.
func Reduce(env *Environment, red Reduction, a *Raster) ([]float64, error) {
	kernel, err := lookupReduction(red)
	if err != nil {
		return nil, err
	}
	nbands, _, _ := a.Shape()
	results := make([]float64, nbands)
	counts := make([]int, nbands)

	blk := a.Blocks()
	for {
		tile, err := ReadTile(a, blk.X0, blk.Y0, blk.W, blk.H, env.Nodata())
		if err != nil {
			return nil, err
		}
		for bi := 0; bi < nbands; bi++ {
			for i, v := range tile.Data[bi] {
				if tile.Masked[bi][i] {
					continue
				}
				counts[bi]++
				results[bi] = kernel(results[bi], v, counts[bi])
			}
		}
		next, ok := blk.Next()
		if !ok {
			break
		}
		blk = next
	}
	if red == ReduceMean {
		for i := range results {
			if counts[i] > 0 {
				results[i] /= float64(counts[i])
			}
		}
	}
	return results, nil
}

// outputDataType picks the output data type from a static rule:
// comparisons produce Byte; every other op takes the later of a's and b's
// data types in godal's DataType ordering, and / and ** promote that to
// Float32 unless it is already Float64. The result type is not widened to
// hold overflow (e.g. Byte + Byte stays Byte).
func outputDataType(op Operator, a, b *Raster) godal.DataType {
	switch op {
	case OpLT, OpLE, OpEQ, OpNE, OpGE, OpGT:
		return godal.Byte
	}
	dt := a.DataType()
	if b != nil && b.DataType() > dt {
		dt = b.DataType()
	}
	switch op {
	case OpDiv, OpPow:
		if dt != godal.Float64 {
			return godal.Float32
		}
	}
	return dt
}

func runTiled(env *Environment, kernel binaryKernel, a, b *Raster, out *TemporaryRaster) error {
	mask := env.Nodata()
	blk := a.Blocks()
	for {
		ta, err := ReadTile(a, blk.X0, blk.Y0, blk.W, blk.H, mask)
		if err != nil {
			return err
		}
		var tb *Tile
		if b != nil {
			tb, err = ReadTile(b, blk.X0, blk.Y0, blk.W, blk.H, mask)
			if err != nil {
				return err
			}
		}
		if err := applyAndWrite(kernel, ta, tb, out); err != nil {
			return err
		}
		next, ok := blk.Next()
		if !ok {
			break
		}
		blk = next
	}
	return nil
}

func runWhole(env *Environment, kernel binaryKernel, a, b *Raster, out *TemporaryRaster) error {
	_, h, w := a.Shape()
	mask := env.Nodata()
	ta, err := ReadTile(a, 0, 0, w, h, mask)
	if err != nil {
		return err
	}
	var tb *Tile
	if b != nil {
		tb, err = ReadTile(b, 0, 0, w, h, mask)
		if err != nil {
			return err
		}
	}
	return applyAndWrite(kernel, ta, tb, out)
}

// applyAndWrite applies kernel to ta (and tb, if present) band by band and
// writes the result into out. Masked positions are filled with out's
// NoData value (L'.nodata[0], per §4.D), not left at the zero value.
func applyAndWrite(kernel binaryKernel, ta, tb *Tile, out *TemporaryRaster) error {
	outBands := out.ds.Bands()
	outType := out.DataType()
	nd, hasND := out.NoData(0)
	for bi := range ta.Data {
		result := make([]float64, len(ta.Data[bi]))
		for i, va := range ta.Data[bi] {
			masked := ta.Masked[bi][i]
			vb := va
			if tb != nil {
				if tb.Masked[bi][i] {
					masked = true
				}
				vb = tb.Data[bi][i]
			}
			if masked {
				if hasND {
					result[i] = nd
				}
				continue
			}
			if tb != nil {
				result[i] = kernel(va, vb)
			} else {
				result[i] = kernel(va, 0)
			}
		}
		if err := writeBandFromFloat64(outBands[bi], ta.X0, ta.Y0, ta.W, ta.H, outType, result); err != nil {
			return wrapErr(IoError, err, "write output tile band %d", bi)
		}
	}
	return nil
}
