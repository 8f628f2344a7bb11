package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	keyProductInfo = "product_info"
	keyPageNum     = "page_num"
	keyPageData    = "page_data"
	keyPageIndex   = "page_index"
	keyFrames      = "frames"
	keyFrameNum    = "frame_num"
	keyFrameData   = "frame_data"
	keyFrameIndex  = "frame_index"
	keyFrameRGB    = "frame_RGB"
)

// Configuration is a device configuration file. Pages are decoded from
// page_data; every other top-level member stays in Fields as raw JSON.
type Configuration struct {
	Pages  []Page
	Fields Fields
}

// Page is one entry of page_data. Only the index and the frame sequence are
// interpreted; lightness, speed_ms, color, keyframes, the "//" comment and any
// vendor members stay in Fields.
type Page struct {
	Index  int
	Frames FrameSequence
	Fields Fields
}

type FrameSequence struct {
	Frames []Frame
	Count  *int
	Fields Fields
}

// Frame is one entry of frame_data. Members other than frame_index and
// frame_RGB, such as per-frame durations, stay in Fields.
type Frame struct {
	Index  int
	RGB    []string
	Fields Fields
}

// NewConfiguration returns an empty configuration with the members a device
// file always carries.
func NewConfiguration() Configuration {
	return Configuration{
		Fields: Fields{
			{Key: keyProductInfo, Value: json.RawMessage("null")},
			{Key: keyPageNum, Value: json.RawMessage("0")},
			{Key: keyPageData},
		},
	}
}

func (c Configuration) ProductInfo() json.RawMessage {
	v, _ := c.Fields.Get(keyProductInfo)
	return v
}

func (c Configuration) PageNum() int {
	v, ok := c.Fields.Get(keyPageNum)
	if !ok {
		return 0
	}
	n, err := decodeIndex(v)
	if err != nil {
		return 0
	}
	return n
}

// Page returns the page with the given page_index, or nil.
func (c *Configuration) Page(index int) *Page {
	for i := range c.Pages {
		if c.Pages[i].Index == index {
			return &c.Pages[i]
		}
	}
	return nil
}

func (c Configuration) FindPage(index int) (Page, bool) {
	for _, p := range c.Pages {
		if p.Index == index {
			return p, true
		}
	}
	return Page{}, false
}

func (c Configuration) Clone() Configuration {
	out := Configuration{Fields: c.Fields.Clone()}
	if c.Pages != nil {
		out.Pages = make([]Page, len(c.Pages))
		for i, p := range c.Pages {
			out.Pages[i] = p.Clone()
		}
	}
	return out
}

func (p Page) Clone() Page {
	return Page{Index: p.Index, Frames: p.Frames.Clone(), Fields: p.Fields.Clone()}
}

func (s FrameSequence) Clone() FrameSequence {
	out := FrameSequence{Fields: s.Fields.Clone()}
	if s.Count != nil {
		n := *s.Count
		out.Count = &n
	}
	if s.Frames != nil {
		out.Frames = make([]Frame, len(s.Frames))
		for i, f := range s.Frames {
			out.Frames[i] = f.Clone()
		}
	}
	return out
}

func (f Frame) Clone() Frame {
	out := Frame{Index: f.Index, Fields: f.Fields.Clone()}
	if f.RGB != nil {
		out.RGB = make([]string, len(f.RGB))
		copy(out.RGB, f.RGB)
	}
	return out
}

func (s FrameSequence) Len() int {
	return len(s.Frames)
}

func (s FrameSequence) isZero() bool {
	return s.Frames == nil && s.Count == nil && len(s.Fields) == 0
}

// WithFrames returns a copy of s carrying frames, with frame_num set to match.
func (s FrameSequence) WithFrames(frames []Frame) FrameSequence {
	n := len(frames)
	return FrameSequence{Frames: frames, Count: &n, Fields: s.Fields.Clone()}
}

func (c Configuration) MarshalJSON() ([]byte, error) {
	fields := c.Fields.Clone()
	if raw, ok := fields.Get(keyPageData); ok && raw != nil && c.Pages == nil {
		return fields.MarshalJSON()
	}
	pages := c.Pages
	if pages == nil {
		pages = []Page{}
	}
	b, err := marshalNoEscape(pages)
	if err != nil {
		return nil, err
	}
	fields.Set(keyPageData, b)
	return fields.MarshalJSON()
}

func (c *Configuration) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := Configuration{Fields: fields}
	if raw, ok := fields.Get(keyPageData); ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out.Pages); err != nil {
			return fmt.Errorf("page_data: %w", err)
		}
		out.Fields.Set(keyPageData, nil)
	}
	*c = out
	return nil
}

func (p Page) MarshalJSON() ([]byte, error) {
	fields := p.Fields.Clone()
	fields.setIndex(keyPageIndex, p.Index)
	if raw, ok := fields.Get(keyFrames); (ok && raw == nil) || !p.Frames.isZero() {
		b, err := marshalNoEscape(p.Frames)
		if err != nil {
			return nil, err
		}
		fields.Set(keyFrames, b)
	}
	return fields.MarshalJSON()
}

func (p *Page) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := Page{Fields: fields}
	if raw, ok := fields.Get(keyPageIndex); ok {
		if out.Index, err = decodeIndex(raw); err != nil {
			return fmt.Errorf("page_index: %w", err)
		}
	}
	if raw, ok := fields.Get(keyFrames); ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out.Frames); err != nil {
			return fmt.Errorf("page %d frames: %w", out.Index, err)
		}
		out.Fields.Set(keyFrames, nil)
	}
	*p = out
	return nil
}

func (s FrameSequence) MarshalJSON() ([]byte, error) {
	fields := s.Fields.Clone()
	if s.Count != nil {
		fields.setIndex(keyFrameNum, *s.Count)
	}
	if raw, ok := fields.Get(keyFrameData); ok && raw != nil && s.Frames == nil {
		return fields.MarshalJSON()
	}
	frames := s.Frames
	if frames == nil {
		frames = []Frame{}
	}
	b, err := marshalNoEscape(frames)
	if err != nil {
		return nil, err
	}
	fields.Set(keyFrameData, b)
	return fields.MarshalJSON()
}

func (s *FrameSequence) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := FrameSequence{Fields: fields}
	if raw, ok := fields.Get(keyFrameNum); ok && !isNull(raw) {
		n, err := decodeIndex(raw)
		if err != nil {
			return fmt.Errorf("frame_num: %w", err)
		}
		out.Count = &n
	}
	if raw, ok := fields.Get(keyFrameData); ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out.Frames); err != nil {
			return fmt.Errorf("frame_data: %w", err)
		}
		out.Fields.Set(keyFrameData, nil)
	}
	*s = out
	return nil
}

// MarshalJSON always writes frame_index. frame_RGB is written only when the
// frame was read with one or RGB has been set since.
func (f Frame) MarshalJSON() ([]byte, error) {
	fields := f.Fields.Clone()
	fields.setIndex(keyFrameIndex, f.Index)
	if raw, ok := fields.Get(keyFrameRGB); (ok && raw == nil) || f.RGB != nil {
		b, err := marshalNoEscape(f.RGB)
		if err != nil {
			return nil, err
		}
		fields.Set(keyFrameRGB, b)
	}
	return fields.MarshalJSON()
}

func (f *Frame) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	out := Frame{Fields: fields}
	if raw, ok := fields.Get(keyFrameIndex); ok && !isNull(raw) {
		if out.Index, err = decodeIndex(raw); err != nil {
			return fmt.Errorf("frame_index: %w", err)
		}
	}
	if raw, ok := fields.Get(keyFrameRGB); ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out.RGB); err != nil {
			return fmt.Errorf("frame_RGB: %w", err)
		}
		out.Fields.Set(keyFrameRGB, nil)
	}
	*f = out
	return nil
}

// EncodeConfiguration renders c the way device files are written: two-space
// indentation, HTML characters left as-is.
func EncodeConfiguration(c Configuration) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeConfiguration(data []byte) (Configuration, error) {
	var c Configuration
	if err := json.Unmarshal(data, &c); err != nil {
		return Configuration{}, err
	}
	return c, nil
}
