package rastercalc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/airbusgeo/godal"
)

var tempCounter int64

// TemporaryRaster is a scratch output raster. It is not reference-counted:
// Close releases it and removes any on-disk scratch file. Grounded on the
// original's TemporaryDataset. When Env.Tempdir is unset, it probes
// whether an in-memory driver is viable, prefers /vsimem/, and falls back
// to an on-disk file in the OS temp directory. When Env.Tempdir is set, the
// scratch raster always goes there (a local file, or a gs:// path through
// component S) and memory is not tried.
type TemporaryRaster struct {
	*Raster
	onDiskPath string // non-empty if backed by a real file that must be removed on Close
}

// NewTemporaryRaster allocates a scratch raster of the given shape/type,
// copying srs/geotransform/nodata from proto.
func NewTemporaryRaster(env *Environment, cols, rows, bands int, dtype godal.DataType, proto *Raster) (*TemporaryRaster, error) {
	id := atomic.AddInt64(&tempCounter, 1)

	path, onDisk, err := scratchPath(env, id)
	if err != nil {
		return nil, err
	}

	ds, err := godal.Create(godal.GTiff, path, bands, dtype, cols, rows,
		godal.CreationOption("BIGTIFF=IF_SAFER"))
	if err != nil {
		return nil, wrapErr(IoError, err, "create scratch raster %s", path)
	}
	if proto != nil {
		if err := ds.SetGeoTransform([6]float64(proto.gt)); err != nil {
			return nil, wrapErr(IoError, err, "set scratch geotransform")
		}
		if proto.srs != nil {
			if err := ds.SetSpatialRef(proto.srs); err != nil {
				return nil, wrapErr(IoError, err, "set scratch SRS")
			}
		}
		allBands := ds.Bands()
		for i := range allBands {
			if i < len(proto.nodata) && proto.hasND[i] {
				_ = allBands[i].SetNoData(proto.nodata[i])
			}
		}
	}
	r, err := newRaster(ds, path, nil)
	if err != nil {
		return nil, err
	}
	return &TemporaryRaster{Raster: r, onDiskPath: onDisk}, nil
}

// scratchPath decides where a new scratch raster should live: under
// /vsimem/ when memory is viable (the common case), under Env.Tempdir
// when set to a local directory, under a gs:// bucket via component S
// when Env.Tempdir names one, or the OS default tempdir otherwise.
// Returns the godal-openable path and, if the scratch file is a real
// on-disk file that must be explicitly removed, that same path again;
// otherwise the second return is empty.
func scratchPath(env *Environment, id int64) (path string, onDisk string, err error) {
	name := fmt.Sprintf("rastercalc-tmp-%d.tif", id)

	if env == nil || env.Tempdir() == "" {
		if memoryAvailable() {
			return "/vsimem/rastercalc/" + name, "", nil
		}
		return filepath.Join(os.TempDir(), name), filepath.Join(os.TempDir(), name), nil
	}
	if env.IsRemoteTempdir() {
		return env.Tempdir() + "/" + name, "", nil
	}
	p := filepath.Join(env.Tempdir(), name)
	return p, p, nil
}

// memoryAvailable probes whether GDAL's MEM driver is registered, mirroring
// the original's "create a throwaway MEM dataset, then discard it" probe.
func memoryAvailable() bool {
	ds, err := godal.Create(godal.Memory, "", 1, godal.Byte, 1, 1)
	if err != nil {
		return false
	}
	ds.Close()
	return true
}

// Save writes the temporary raster to outpath in outformat, honoring
// Env.Overwrite, mirroring the original's TemporaryDataset.save.
func (t *TemporaryRaster) Save(env *Environment, outpath string, driver godal.DriverName, creationOpts []string) error {
	if !env.Overwrite() {
		if _, err := os.Stat(outpath); err == nil {
			return newErr(OutputExists, "%s already exists and Env.Overwrite is false", outpath)
		}
	}
	opts := make([]godal.DatasetTranslateOption, 0, 1)
	if len(creationOpts) > 0 {
		opts = append(opts, godal.CreationOption(creationOpts...))
	}
	out, err := t.ds.Translate(outpath, []string{"-of", string(driver)}, opts...)
	if err != nil {
		return wrapErr(IoError, err, "save to %s", outpath)
	}
	return out.Close()
}

// Close releases the underlying dataset and, for on-disk scratch files,
// removes them -- mirroring TemporaryDataset.__del__'s driver.Delete.
func (t *TemporaryRaster) Close() error {
	err := t.Raster.Close()
	if t.onDiskPath != "" {
		os.Remove(t.onDiskPath)
	}
	return err
}

// ArrayRaster wraps raw pixel data (e.g. the result of the numexpr fast
// path) as a Raster, inheriting geotransform/SRS/nodata from a prototype
// when not given explicitly -- grounded on the original's ArrayDataset.
func ArrayRaster(env *Environment, data [][]float64, width, height int, dtype godal.DataType, proto *Raster, explicitExtent *Extent) (*TemporaryRaster, error) {
	tmp, err := NewTemporaryRaster(env, width, height, len(data), dtype, proto)
	if err != nil {
		return nil, err
	}
	if explicitExtent != nil {
		px := (explicitExtent[2] - explicitExtent[0]) / float64(width)
		py := (explicitExtent[3] - explicitExtent[1]) / float64(height)
		gt := GeoTransformFor(*explicitExtent, px, py)
		if err := tmp.ds.SetGeoTransform([6]float64(gt)); err != nil {
			return nil, wrapErr(IoError, err, "set array geotransform")
		}
	}
	allBands := tmp.ds.Bands()
	for i, band := range allBands {
		if err := writeBandFromFloat64(band, 0, 0, width, height, dtype, data[i]); err != nil {
			return nil, wrapErr(IoError, err, "write array band %d", i)
		}
	}
	return tmp, nil
}
