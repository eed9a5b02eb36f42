// Package common keeps enumerations shared between configuration and the
// conversion code, so neither has to import the other.
package common

//go:generate go tool go-enum --marshal --names --mustparse

// Specification of requested output type.
// ENUM(epub2, epub3)
type OutputFmt int

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtEpub2, OutputFmtEpub3:
		return ".epub"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// Encoding of generated cover image.
// ENUM(png, jpeg)
type CoverFmt int

func (c CoverFmt) Ext() string {
	switch c {
	case CoverFmtJpeg:
		return ".jpg"
	default:
		return ".png"
	}
}

func (c CoverFmt) MimeType() string {
	switch c {
	case CoverFmtJpeg:
		return "image/jpeg"
	default:
		return "image/png"
	}
}
