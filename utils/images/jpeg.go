package images

import (
	"bytes"
	"encoding/binary"
	"errors"
)

type DpiType uint8

const (
	DpiNoUnits DpiType = iota
	DpiPxPerInch
	DpiPxPerCm
)

var errNotJPEG = errors.New("not a jpeg")

// EnsureJFIFAPP0 inserts JFIF APP0 segment right after SOI when jpeg does
// not start with one. Go encoder never writes it and some readers look for
// density there. Reports whether segment was added.
func EnsureJFIFAPP0(data []byte, unit DpiType, xdensity, ydensity uint16) ([]byte, bool, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, false, errNotJPEG
	}
	if data[2] == 0xFF && data[3] == 0xE0 {
		return data, false, nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(data)+18))
	buf.Write(data[:2])
	buf.Write([]byte{0xFF, 0xE0})
	_ = binary.Write(buf, binary.BigEndian, uint16(16))
	buf.WriteString("JFIF\x00")
	buf.Write([]byte{1, 2}) // version
	buf.WriteByte(byte(unit))
	_ = binary.Write(buf, binary.BigEndian, xdensity)
	_ = binary.Write(buf, binary.BigEndian, ydensity)
	buf.Write([]byte{0, 0}) // no thumbnail
	buf.Write(data[2:])
	return buf.Bytes(), true, nil
}
