package rastercalc

import (
	"encoding/xml"
	"fmt"
	"sync/atomic"

	"github.com/airbusgeo/godal"
)

// VRTDataset is a typed representation of GDAL's VRT XML graph, enough of
// it for the Convert and Clip operations: a raster size, an optional
// geotransform, and a list of bands each sourcing a window of an
// underlying dataset.
//
// Modeled on the VRT-building idiom in this corpus's own vrt.go: build the
// graph with typed structs, marshal it, hand the XML to the raster
// library rather than writing or parsing VRT text by hand.
type VRTDataset struct {
	XMLName      xml.Name        `xml:"VRTDataset"`
	RasterXSize  int             `xml:"rasterXSize,attr"`
	RasterYSize  int             `xml:"rasterYSize,attr"`
	SRS          string          `xml:"SRS,omitempty"`
	GeoTransform *vrtGeoTransform `xml:"GeoTransform,omitempty"`
	Bands        []VRTRasterBand `xml:"VRTRasterBand"`
}

type vrtGeoTransform GeoTransform

func (g vrtGeoTransform) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%.16e, %.16e, %.16e, %.16e, %.16e, %.16e", g[0], g[1], g[2], g[3], g[4], g[5])), nil
}

// VRTRasterBand is one output band of a VRTDataset.
type VRTRasterBand struct {
	DataType     string          `xml:"dataType,attr"`
	Band         int             `xml:"band,attr"`
	NoDataValue  *float64        `xml:"NoDataValue,omitempty"`
	ComplexSrc   []ComplexSource `xml:"ComplexSource,omitempty"`
	SimpleSrc    []SimpleSource  `xml:"SimpleSource,omitempty"`
}

// SimpleSource is a plain pass-through window of a source band.
type SimpleSource struct {
	SourceFilename SourceFilename `xml:"SourceFilename"`
	SourceBand     int            `xml:"SourceBand"`
	SrcRect        Rect           `xml:"SrcRect"`
	DstRect        Rect           `xml:"DstRect"`
}

// ComplexSource is a SimpleSource that additionally carries a NODATA value
// through a clip or enlargement, the same role it plays in the original's
// ClippedDataset.
type ComplexSource struct {
	SourceFilename SourceFilename `xml:"SourceFilename"`
	SourceBand     int            `xml:"SourceBand"`
	SrcRect        Rect           `xml:"SrcRect"`
	DstRect        Rect           `xml:"DstRect"`
	NODATA         float64        `xml:"NODATA"`
}

// SourceFilename names the underlying file a source window reads from.
type SourceFilename struct {
	RelativeToVRT bool   `xml:"relativeToVRT,attr"`
	Shared        bool   `xml:"shared,attr"`
	Filename      string `xml:",chardata"`
}

// Rect is a pixel-space window, used for both SrcRect and DstRect.
type Rect struct {
	XOff  int `xml:"xOff,attr"`
	YOff  int `xml:"yOff,attr"`
	XSize int `xml:"xSize,attr"`
	YSize int `xml:"ySize,attr"`
}

var vrtCounter int64

func nextVRTPath(kind string) string {
	id := atomic.AddInt64(&vrtCounter, 1)
	return fmt.Sprintf("/vsimem/rastercalc/%s-%d.vrt", kind, id)
}

// openVRT marshals v and opens it with the underlying raster library.
// godal.Open accepts a raw VRT XML document directly in place of a
// filename, so the serialized graph never touches a real path.
func openVRT(v *VRTDataset, kind string) (*godal.Dataset, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, wrapErr(InvalidConfig, err, "marshal %s VRT", kind)
	}
	ds, err := godal.Open(string(body))
	if err != nil {
		return nil, wrapErr(IoError, err, "open synthesized %s VRT", kind)
	}
	return ds, nil
}

// ConvertRaster re-exposes src's selected bands cast to dtype, renumbering
// bands 1..N in the requested order, and returns the result opened as a
// Raster. This is the VRT-only analogue of gdal_translate -ot, grounded on
// the original's ConvertedDataset.
func ConvertRaster(src *Raster, dtype godal.DataType) (*Raster, error) {
	v, err := buildConvertVRT(src, dtype)
	if err != nil {
		return nil, err
	}
	ds, err := openVRT(v, "convert")
	if err != nil {
		return nil, err
	}
	return newRaster(ds, vrtIdentity(v), nil)
}

// vrtIdentity returns a re-openable identity for a just-marshaled VRT: the
// marshaled XML itself, which godal.Open accepts verbatim in place of a
// filename.
func vrtIdentity(v *VRTDataset) string {
	body, _ := xml.Marshal(v)
	return string(body)
}

func buildConvertVRT(src *Raster, dtype godal.DataType) (*VRTDataset, error) {
	if src.path == "" {
		return nil, newErr(InvalidConfig, "source raster has no re-openable path")
	}
	srcPath := src.path
	v := &VRTDataset{
		RasterXSize: src.xsize,
		RasterYSize: src.ysize,
	}
	for i, bandNum := range src.bands {
		band := VRTRasterBand{
			DataType: dtype.String(),
			Band:     i + 1,
			SimpleSrc: []SimpleSource{{
				SourceFilename: SourceFilename{Filename: srcPath, Shared: true, RelativeToVRT: false},
				SourceBand:     bandNum,
				SrcRect:        Rect{0, 0, src.xsize, src.ysize},
				DstRect:        Rect{0, 0, src.xsize, src.ysize},
			}},
		}
		v.Bands = append(v.Bands, band)
	}
	return v, nil
}

// ClipRaster windows src to extent ext, snapped to src's pixel grid, and
// returns the result opened as a Raster. Enlarging beyond src's own
// extent fills with src's NoData (or 0 if unset) via a ComplexSource
// carrying the NODATA value forward, grounded on the original's
// ClippedDataset._extent_to_offsets / SimpleSource-to-ComplexSource
// promotion.
func ClipRaster(src *Raster, ext Extent) (*Raster, error) {
	v, err := buildClipVRT(src, ext)
	if err != nil {
		return nil, err
	}
	ds, err := openVRT(v, "clip")
	if err != nil {
		return nil, err
	}
	return newRaster(ds, vrtIdentity(v), nil)
}

func buildClipVRT(src *Raster, ext Extent) (*VRTDataset, error) {
	if src.path == "" {
		return nil, newErr(InvalidConfig, "source raster has no re-openable path")
	}
	snapped := ext.Snap(src.gt)
	px := src.gt.PixelWidth()
	py := src.gt.PixelHeight()
	xoff, yoffF := MapToPixel(src.gt, snapped[0], snapped[3])
	xoff2, yoff2F := MapToPixel(src.gt, snapped[2], snapped[1])
	clipXSize := int(xoff2 - xoff)
	clipYSize := int(yoff2F - yoffF)
	if clipXSize <= 0 || clipYSize <= 0 {
		return nil, newErr(NoOverlap, "clip window is empty")
	}
	yoff := int(yoffF)
	xoffI := int(xoff)

	srcPath := src.path
	v := &VRTDataset{
		RasterXSize:  clipXSize,
		RasterYSize:  clipYSize,
		GeoTransform: (*vrtGeoTransform)(&GeoTransform{snapped[0], px, 0, snapped[3], 0, py}),
	}

	// the window relative to src, clamped to src's own raster bounds; any
	// remainder is left as NoData-filled padding by virtue of the
	// ComplexSource's NODATA element.
	srcXOff, srcYOff := xoffI, yoff
	srcW, srcH := clipXSize, clipYSize
	dstXOff, dstYOff := 0, 0
	if srcXOff < 0 {
		dstXOff = -srcXOff
		srcW += srcXOff
		srcXOff = 0
	}
	if srcYOff < 0 {
		dstYOff = -srcYOff
		srcH += srcYOff
		srcYOff = 0
	}
	if srcXOff+srcW > src.xsize {
		srcW = src.xsize - srcXOff
	}
	if srcYOff+srcH > src.ysize {
		srcH = src.ysize - srcYOff
	}

	for i, bandNum := range src.bands {
		nd, hasND := src.NoData(i)
		if !hasND {
			nd = 0
		}
		band := VRTRasterBand{
			DataType:    src.dtype.String(),
			Band:        i + 1,
			NoDataValue: floatPtr(nd),
		}
		if srcW > 0 && srcH > 0 {
			band.ComplexSrc = []ComplexSource{{
				SourceFilename: SourceFilename{Filename: srcPath, Shared: true},
				SourceBand:     bandNum,
				SrcRect:        Rect{srcXOff, srcYOff, srcW, srcH},
				DstRect:        Rect{dstXOff, dstYOff, srcW, srcH},
				NODATA:         nd,
			}}
		}
		v.Bands = append(v.Bands, band)
	}
	return v, nil
}

func floatPtr(f float64) *float64 { return &f }

// WarpRaster reprojects src into dstSRS at the given resampling
// algorithm, delegating the actual warp math to the underlying raster
// library (godal.Warp) rather than reimplementing it; when snap is
// non-nil, the warp's target grid is additionally pinned to snap's pixel
// size and extent, grounded on the original's WarpedDataset._modify_vrt.
func WarpRaster(src *Raster, dstSRS *godal.SpatialRef, resampling godal.ResamplingAlg, snap *Raster) (*Raster, error) {
	wkt, err := dstSRS.WKT()
	if err != nil {
		return nil, wrapErr(InvalidConfig, err, "export destination SRS to WKT")
	}
	switches := []string{"-t_srs", wkt, "-r", resampling.String()}
	if snap != nil {
		px := snap.gt.PixelWidth()
		py := snap.gt.PixelHeight()
		switches = append(switches, "-tr", fmt.Sprintf("%v", px), fmt.Sprintf("%v", -py))
		ext := snap.Extent()
		switches = append(switches, "-te",
			fmt.Sprintf("%v", ext[0]), fmt.Sprintf("%v", ext[1]),
			fmt.Sprintf("%v", ext[2]), fmt.Sprintf("%v", ext[3]))
	}
	path := nextVRTPath("warp")
	out, err := godal.Warp(path, []*godal.Dataset{src.ds}, switches,
		godal.CreationOption("FORMAT=VRT"))
	if err != nil {
		return nil, wrapErr(IoError, err, "warp to %s", wkt)
	}
	return newRaster(out, path, nil)
}
