package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deviceFile = `{
  "product_info": {"model": "LX-40", "fw": "1.2<beta>"},
  "page_num": 3,
  "vendor_flags": [1, 2, 3],
  "page_data": [
    {
      "//": "static page",
      "page_index": 0,
      "lightness": 3,
      "frames": {"frame_num": 1, "frame_data": [{"frame_index": 0, "frame_RGB": ["#FFFFFF"]}]}
    },
    {
      "page_index": "5",
      "lightness": 7,
      "speed_ms": 120,
      "color": null,
      "frames": {
        "frame_num": "2",
        "loop": true,
        "frame_data": [
          {"frame_index": 0, "frame_RGB": ["#FF0000", "#00FF00"]},
          {"frame_index": 1, "frame_RGB": ["#0000FF"]}
        ]
      },
      "keyframes": [{"t": 0}]
    },
    {
      "page_index": true,
      "frames": null
    }
  ]
}`

func TestDecodeConfiguration(t *testing.T) {
	cfg, err := DecodeConfiguration([]byte(deviceFile))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.PageNum())
	assert.JSONEq(t, `{"model": "LX-40", "fw": "1.2<beta>"}`, string(cfg.ProductInfo()))
	require.Len(t, cfg.Pages, 3)

	p5, ok := cfg.FindPage(5)
	require.True(t, ok)
	require.NotNil(t, p5.Frames.Count)
	assert.Equal(t, 2, *p5.Frames.Count)
	require.Len(t, p5.Frames.Frames, 2)
	assert.Equal(t, 0, p5.Frames.Frames[0].Index)
	assert.Equal(t, []string{"#FF0000", "#00FF00"}, p5.Frames.Frames[0].RGB)

	assert.Equal(t, 1, cfg.Pages[2].Index)
	assert.Nil(t, cfg.Pages[2].Frames.Frames)
}

func TestConfigurationRoundTripKeepsMembersAndOrder(t *testing.T) {
	cfg, err := DecodeConfiguration([]byte(deviceFile))
	require.NoError(t, err)

	out, err := EncodeConfiguration(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, deviceFile, string(out))

	again, err := DecodeConfiguration(out)
	require.NoError(t, err)
	reencoded, err := EncodeConfiguration(again)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(reencoded))

	var top Fields
	require.NoError(t, json.Unmarshal(out, &top))
	keys := make([]string, len(top))
	for i, f := range top {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"product_info", "page_num", "vendor_flags", "page_data"}, keys)

	// HTML characters are written as-is
	assert.Contains(t, string(out), "1.2<beta>")
}

func TestEncodeWritesUpdatedFrames(t *testing.T) {
	cfg, err := DecodeConfiguration([]byte(deviceFile))
	require.NoError(t, err)

	p := cfg.Page(5)
	require.NotNil(t, p)
	frames := []Frame{{Index: 0, RGB: []string{"#111111"}}, {Index: 1}, {Index: 2}}
	p.Frames = p.Frames.WithFrames(frames)

	out, err := EncodeConfiguration(cfg)
	require.NoError(t, err)

	var doc struct {
		PageData []struct {
			Frames *struct {
				FrameNum  int             `json:"frame_num"`
				Loop      bool            `json:"loop"`
				FrameData json.RawMessage `json:"frame_data"`
			} `json:"frames"`
		} `json:"page_data"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	f := doc.PageData[1].Frames
	require.NotNil(t, f)
	assert.Equal(t, 3, f.FrameNum)
	assert.True(t, f.Loop)
	var data []Frame
	require.NoError(t, json.Unmarshal(f.FrameData, &data))
	assert.Len(t, data, 3)

	// a null frames member stays null
	assert.Nil(t, doc.PageData[2].Frames)
}

func TestNewConfiguration(t *testing.T) {
	out, err := EncodeConfiguration(NewConfiguration())
	require.NoError(t, err)
	assert.JSONEq(t, `{"product_info": null, "page_num": 0, "page_data": []}`, string(out))
}

func TestConfigurationWithoutPageData(t *testing.T) {
	cfg, err := DecodeConfiguration([]byte(`{"product_info": {"x": 1}}`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Pages)
	_, ok := cfg.FindPage(5)
	assert.False(t, ok)

	out, err := EncodeConfiguration(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"product_info": {"x": 1}, "page_data": []}`, string(out))
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	for _, doc := range []string{
		`[]`,
		`{"page_data": {"a": 1}}`,
		`{"page_data": [{"page_index": -1}]}`,
		`{"page_data": [{"page_index": 1.5}]}`,
		`{"page_data": [{"page_index": 5, "frames": {"frame_data": [{"frame_index": "x"}]}}]}`,
		`{"page_data": [`,
	} {
		_, err := DecodeConfiguration([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg, err := DecodeConfiguration([]byte(deviceFile))
	require.NoError(t, err)

	cp := cfg.Clone()
	assert.Equal(t, cfg, cp)

	cp.Pages[1].Frames.Frames[0].RGB[0] = "#000000"
	*cp.Pages[1].Frames.Count = 9
	cp.Fields[0].Value[0] = ' '
	cp.Pages[1].Fields.Set("lightness", json.RawMessage("1"))

	p5, _ := cfg.FindPage(5)
	assert.Equal(t, "#FF0000", p5.Frames.Frames[0].RGB[0])
	assert.Equal(t, 2, *p5.Frames.Count)
	assert.Equal(t, byte('{'), cfg.Fields[0].Value[0])
	lightness, _ := p5.Fields.Get("lightness")
	assert.Equal(t, "7", string(lightness))
}

func TestIndexSpellingIsKept(t *testing.T) {
	cfg, err := DecodeConfiguration([]byte(`{"page_data": [{"page_index": "6", "frames": {"frame_num": "1", "frame_data": [{"frame_index": 0, "frame_RGB": []}]}}]}`))
	require.NoError(t, err)
	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"page_index":"6"`)
	assert.Contains(t, string(out), `"frame_num":"1"`)

	// a changed count is written as a number
	p := cfg.Page(6)
	p.Frames = p.Frames.WithFrames(nil)
	out, err = json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"frame_num":0`)
	assert.Contains(t, string(out), `"frame_data":[]`)
}

func TestDecodeToleratesIndexSpellings(t *testing.T) {
	cases := map[string]int{
		`3`:     3,
		`"3"`:   3,
		`" 4 "`: 4,
		`5.0`:   5,
		`"7.0"`: 7,
		`true`:  1,
		`false`: 0,
	}
	for raw, want := range cases {
		n, err := decodeIndex(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, n, raw)
	}
	for _, raw := range []string{`null`, `"x"`, `-1`, `"2.5"`, `{}`, `[]`} {
		_, err := decodeIndex(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestFrameIndexTolerance(t *testing.T) {
	var f Frame
	require.NoError(t, json.Unmarshal([]byte(`{"frame_index": "12", "frame_RGB": ["#FFFFFF"]}`), &f))
	assert.Equal(t, 12, f.Index)

	require.NoError(t, json.Unmarshal([]byte(`{"frame_index": null, "frame_RGB": []}`), &f))
	assert.Equal(t, 0, f.Index)
}

func TestFrameRoundTripKeepsVendorMembers(t *testing.T) {
	doc := `{"page_data": [{"page_index": 0, "frames": {"frame_num": 2, "frame_data": [
		{"frame_index": "0", "frame_RGB": ["#FFFFFF"], "duration_ms": 40},
		{"duration_ms": 80, "frame_index": 1}
	]}}]}`
	cfg, err := DecodeConfiguration([]byte(doc))
	require.NoError(t, err)

	frames := cfg.Pages[0].Frames.Frames
	require.Len(t, frames, 2)
	assert.Equal(t, []string{"#FFFFFF"}, frames[0].RGB)
	assert.Nil(t, frames[1].RGB)

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `{"frame_index":"0","frame_RGB":["#FFFFFF"],"duration_ms":40}`)
	assert.Contains(t, string(out), `{"duration_ms":80,"frame_index":1}`)
	assert.NotContains(t, string(out), `"frame_RGB":null`)
}

func TestFrameEncodeWritesChanges(t *testing.T) {
	var f Frame
	require.NoError(t, json.Unmarshal([]byte(`{"frame_index": "0", "tag": "a", "frame_RGB": ["#FFFFFF"]}`), &f))
	f.Index = 4
	f.RGB = []string{"#000000"}
	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"frame_index":4,"tag":"a","frame_RGB":["#000000"]}`, string(out))

	out, err = json.Marshal(Frame{Index: 2})
	require.NoError(t, err)
	assert.Equal(t, `{"frame_index":2}`, string(out))
}
