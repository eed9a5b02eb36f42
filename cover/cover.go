// Package cover produces book cover image.
package cover

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"hbc/common"
	imgutil "hbc/utils/images"
)

const (
	Width  = 500
	Height = 800
)

//go:embed artwork.svg
var artwork []byte

var ErrUnsupportedImage = errors.New("unsupported cover image type")

type textLine struct {
	text string
	bold bool
	size float64
	y    int // baseline
	col  color.Color
}

var (
	gold  = color.RGBA{0xd9, 0xc2, 0x7a, 0xff}
	ivory = color.RGBA{0xf4, 0xf1, 0xe8, 0xff}
	muted = color.RGBA{0xb8, 0xc4, 0xd6, 0xff}
)

var layout = []textLine{
	{text: "Markus Triska", size: 30, y: 100, col: ivory},
	{text: "The", bold: true, size: 60, y: 360, col: ivory},
	{text: "Power", bold: true, size: 60, y: 435, col: ivory},
	{text: "of", bold: true, size: 60, y: 510, col: ivory},
	{text: "Prolog", bold: true, size: 72, y: 600, col: gold},
	{text: "Copyright (C) Markus Triska", size: 15, y: 725, col: muted},
	{text: "https://www.metalevel.at/prolog", size: 15, y: 750, col: muted},
}

// Render draws cover and encodes it in requested format. Quality is only
// used for jpeg.
func Render(format common.CoverFmt, quality int) ([]byte, error) {
	img, err := Draw()
	if err != nil {
		return nil, err
	}
	return Encode(img, format, quality)
}

// Draw rasterizes artwork and puts text on top of it.
func Draw() (*image.RGBA, error) {
	img, err := imgutil.RasterizeSVGToImage(artwork, Width, Height)
	if err != nil {
		return nil, fmt.Errorf("unable to rasterize cover artwork: %w", err)
	}

	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, err
	}

	for _, l := range layout {
		f := regular
		if l.bold {
			f = bold
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: l.size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("unable to create font face: %w", err)
		}
		drawCentered(img, face, l.text, l.y, l.col)
		face.Close()
	}
	return img, nil
}

func drawCentered(dst draw.Image, face font.Face, text string, baseline int, col color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(text).Ceil()
	d.Dot = fixed.P((dst.Bounds().Dx()-w)/2, baseline)
	d.DrawString(text)
}

// Encode produces png or jpeg data.
func Encode(img image.Image, format common.CoverFmt, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	switch format {
	case common.CoverFmtPng:
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("unable to encode cover: %w", err)
		}
		return buf.Bytes(), nil
	case common.CoverFmtJpeg:
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("unable to encode cover: %w", err)
		}
		data, _, err := imgutil.EnsureJFIFAPP0(buf.Bytes(), imgutil.DpiPxPerInch, 300, 300)
		return data, err
	default:
		return nil, fmt.Errorf("unknown cover format: %s", format)
	}
}

// Image is cover ready for packaging.
type Image struct {
	Data     []byte
	MimeType string
	Ext      string
	Width    int
	Height   int
}

// Load reads existing cover image. Only jpeg and png are accepted, type is
// detected by content.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read cover image: %w", err)
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("unable to detect cover image type: %w", err)
	}
	var ext string
	switch kind.MIME.Value {
	case "image/jpeg":
		ext = common.CoverFmtJpeg.Ext()
	case "image/png":
		ext = common.CoverFmtPng.Ext()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, kind.MIME.Value)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode cover image: %w", err)
	}
	return &Image{Data: data, MimeType: kind.MIME.Value, Ext: ext, Width: cfg.Width, Height: cfg.Height}, nil
}

// Generate renders default cover.
func Generate(format common.CoverFmt, quality int) (*Image, error) {
	data, err := Render(format, quality)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, MimeType: format.MimeType(), Ext: format.Ext(), Width: Width, Height: Height}, nil
}
