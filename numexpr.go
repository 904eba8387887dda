package rastercalc

import (
	"github.com/airbusgeo/godal"
	goeval "github.com/edisonguo/govaluate"
)

// EvaluateExpression evaluates expr once per pixel against the given
// raster bindings and returns the result as a new TemporaryRaster. This
// is the fast path described for component X: it takes a whole expression
// string rather than one operator at a time, mirroring the original CLI's
// numexpr.evaluate(args.calc) entry point. It requires every bound raster
// to already share one extent -- Operation's Alignment pass is not invoked
// here. It always reads whole arrays, since govaluate has no notion of
// streaming, and it does not consult Env.EnableNumexpr or Env.Tiled.
func EvaluateExpression(env *Environment, expr string, bindings map[string]*Raster) (*TemporaryRaster, error) {
	parsed, err := goeval.NewEvaluableExpression(expr)
	if err != nil {
		return nil, wrapErr(InvalidConfig, err, "parse expression %q", expr)
	}

	var proto *Raster
	names := make([]string, 0, len(bindings))
	for name, r := range bindings {
		names = append(names, name)
		if proto == nil {
			proto = r
		} else if proto.Extent() != r.Extent() {
			return nil, newErr(IncompatibleCellsize, "bound rasters %s do not share a grid; align them before enabling the expression fast path", names)
		}
	}
	if proto == nil {
		return nil, newErr(InvalidConfig, "no rasters bound to expression")
	}

	mask := env.Nodata()
	_, h, w := proto.Shape()
	tiles := make(map[string]*Tile, len(bindings))
	for name, r := range bindings {
		t, err := ReadTile(r, 0, 0, w, h, mask)
		if err != nil {
			return nil, err
		}
		tiles[name] = t
	}

	nbands, _, _ := proto.Shape()
	out := make([][]float64, nbands)
	nd, hasND := proto.NoData(0)
	for bi := 0; bi < nbands; bi++ {
		out[bi] = make([]float64, w*h)
		params := make(map[string]interface{}, len(bindings))
		for i := 0; i < w*h; i++ {
			masked := false
			for name, t := range tiles {
				if mask && t.Masked[bi][i] {
					masked = true
				}
				params[name] = t.Data[bi][i]
			}
			if masked {
				if hasND {
					out[bi][i] = nd
				}
				continue
			}
			res, err := parsed.Evaluate(params)
			if err != nil {
				return nil, wrapErr(UnsupportedOp, err, "evaluate expression %q", expr)
			}
			v, ok := res.(float64)
			if !ok {
				b, isBool := res.(bool)
				if !isBool {
					return nil, newErr(UnsupportedOp, "expression %q produced a non-numeric result", expr)
				}
				if b {
					v = 1
				}
			}
			out[bi][i] = v
		}
	}

	return ArrayRaster(env, out, w, h, godal.Float64, proto, nil)
}
