package service

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"led-frame-merger/internal/model"
)

// NormalizeFrame fits a frame's colour list to n elements, dropping extras and
// filling the rest with the off colour. It is for display only: saved frames
// keep whatever length they were loaded with.
func NormalizeFrame(rgb []string, n int) []string {
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	copied := copy(out, rgb)
	for i := copied; i < n; i++ {
		out[i] = model.OffColor
	}
	return out
}

// ParseHexColor accepts #RRGGBB, RRGGBB and #RGB.
func ParseHexColor(s string) (model.RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return model.RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return model.RGB{}, false
	}
	return model.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

func FormatHexColor(c model.RGB) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// FramePixels decodes a frame into one RGB value per element of g. Colours
// that do not parse are shown as off.
func FramePixels(frame model.Frame, g model.Geometry) []model.RGB {
	colors := NormalizeFrame(frame.RGB, g.Elements())
	pixels := make([]model.RGB, len(colors))
	for i, c := range colors {
		if rgb, ok := ParseHexColor(c); ok {
			pixels[i] = rgb
		}
	}
	return pixels
}

// RenderFramePNG draws a frame as a PNG, each element scale pixels square.
func RenderFramePNG(frame model.Frame, g model.Geometry, scale int) ([]byte, error) {
	if g.Rows <= 0 || g.Cols <= 0 {
		return nil, fmt.Errorf("invalid geometry %dx%d", g.Rows, g.Cols)
	}
	if scale <= 0 {
		scale = 1
	}
	img := imaging.New(g.Cols, g.Rows, color.NRGBA{A: 255})
	for i, p := range FramePixels(frame, g) {
		img.SetNRGBA(i%g.Cols, i/g.Cols, color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255})
	}
	scaled := imaging.Resize(img, g.Cols*scale, g.Rows*scale, imaging.NearestNeighbor)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PreviewFrame picks frame n of a page, or an all-off frame when the page has
// none.
func PreviewFrame(page model.Page, n int) (model.Frame, error) {
	frames := page.Frames.Frames
	if len(frames) == 0 {
		return model.Frame{}, nil
	}
	if n < 0 || n >= len(frames) {
		return model.Frame{}, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, n, len(frames))
	}
	return frames[n], nil
}
