package service

import (
	"errors"
	"strings"

	"led-frame-merger/internal/model"
)

var ErrUnsupportedEncoding = errors.New("unsupported encoding")

const (
	EncodingRGB24  = "rgb24"
	EncodingRGB565 = "rgb565"
	EncodingRGB111 = "rgb111"
)

// EncodeFrame packs one preview frame for a physical panel, row-major.
func EncodeFrame(frame model.Frame, g model.Geometry, encoding string) ([]byte, error) {
	pixels := FramePixels(frame, g)
	switch strings.ToLower(encoding) {
	case "", EncodingRGB24:
		return EncodeRGB24(pixels), nil
	case EncodingRGB565:
		return EncodeRGB565(pixels), nil
	case EncodingRGB111:
		return EncodeRGB111(pixels), nil
	default:
		return nil, ErrUnsupportedEncoding
	}
}

func EncodeRGB24(pixels []model.RGB) []byte {
	out := make([]byte, 0, len(pixels)*3)
	for _, p := range pixels {
		out = append(out, p.R, p.G, p.B)
	}
	return out
}

func EncodeRGB565(pixels []model.RGB) []byte {
	out := make([]byte, 0, len(pixels)*2)
	for _, p := range pixels {
		v := (uint16(p.R&0xF8) << 8) | (uint16(p.G&0xFC) << 3) | (uint16(p.B) >> 3)
		out = append(out, byte(v>>8), byte(v&0xFF))
	}
	return out
}

func EncodeRGB111(pixels []model.RGB) []byte {
	out := make([]byte, 0, len(pixels))
	for _, p := range pixels {
		var v byte
		if p.R > 127 {
			v |= 0b100
		}
		if p.G > 127 {
			v |= 0b010
		}
		if p.B > 127 {
			v |= 0b001
		}
		out = append(out, v)
	}
	return out
}
