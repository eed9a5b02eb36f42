package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func TestEnsureJFIFAPP0(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	src := buf.Bytes()

	out, added, err := EnsureJFIFAPP0(src, DpiPxPerInch, 300, 300)
	if err != nil {
		t.Fatalf("EnsureJFIFAPP0() error = %v", err)
	}
	if !added {
		t.Fatal("expected marker to be added")
	}
	if len(out) != len(src)+18 {
		t.Errorf("length = %d, want %d", len(out), len(src)+18)
	}
	if !bytes.Equal(out[2:4], []byte{0xFF, 0xE0}) || string(out[6:11]) != "JFIF\x00" {
		t.Errorf("unexpected header % x", out[:20])
	}
	if out[13] != byte(DpiPxPerInch) || out[14] != 0x01 || out[15] != 0x2C {
		t.Errorf("unexpected density bytes % x", out[13:18])
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("result does not decode: %v", err)
	}

	again, added, err := EnsureJFIFAPP0(out, DpiPxPerInch, 300, 300)
	if err != nil || added || !bytes.Equal(again, out) {
		t.Errorf("second call must be no-op, added=%v err=%v", added, err)
	}
}

func TestEnsureJFIFAPP0_NotJPEG(t *testing.T) {
	for _, data := range [][]byte{nil, {0xFF}, []byte("\x89PNG\r\n")} {
		if _, _, err := EnsureJFIFAPP0(data, DpiNoUnits, 1, 1); err == nil {
			t.Errorf("expected error for % x", data)
		}
	}
}
