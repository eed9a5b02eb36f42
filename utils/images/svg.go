// Package images contains raster helpers shared by cover rendering.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// fallbackSize is used for the dimension SVG viewBox does not define.
const fallbackSize = 1024

// maxRasterDim limits rasterized image size, huge viewBox values would
// otherwise allocate gigabytes.
var maxRasterDim = 8192

// RasterizeSVGToImage rasterizes SVG to an RGBA image on white background.
//
// Target size rules:
//   - both zero: viewBox dimensions
//   - one of them positive: scale by that dimension keeping aspect ratio
//   - both positive: fit into the box keeping aspect ratio
func RasterizeSVGToImage(svgData []byte, targetW, targetH int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("unable to read svg: %w", err)
	}

	w, h := fitSize(icon.ViewBox.W, icon.ViewBox.H, targetW, targetH)
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return dst, nil
}

func fitSize(vbW, vbH float64, targetW, targetH int) (int, int) {
	iw, ih := int(math.Ceil(vbW)), int(math.Ceil(vbH))
	if iw <= 0 {
		iw = fallbackSize
	}
	if ih <= 0 {
		ih = fallbackSize
	}

	scale := 1.0
	switch {
	case targetW > 0 && targetH > 0:
		scale = math.Min(float64(targetW)/float64(iw), float64(targetH)/float64(ih))
	case targetW > 0:
		scale = float64(targetW) / float64(iw)
	case targetH > 0:
		scale = float64(targetH) / float64(ih)
	}
	w := max(int(math.Round(float64(iw)*scale)), 1)
	h := max(int(math.Round(float64(ih)*scale)), 1)

	if w > maxRasterDim || h > maxRasterDim {
		s := math.Min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}
	return w, h
}
