package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"led-frame-merger/internal/model"
)

func TestValidateAll(t *testing.T) {
	base := baseConfig()
	valid := func() map[model.Slot][]model.SlotSelection {
		return map[model.Slot][]model.SlotSelection{
			model.SlotLED1: {sel(&base, 5)},
			model.SlotLED2: {sel(&base, 6)},
			model.SlotLED3: {sel(&base, 7)},
		}
	}
	assert.True(t, ValidateAll(slotSelections(valid())))

	big := testConfig(testPage(6, 300, "#FFFFFF"))
	empty := testConfig(testPage(6, 0, "#FFFFFF"))

	for _, slot := range model.AllSlots {
		m := valid()
		m[slot] = nil
		assert.False(t, ValidateAll(slotSelections(m)), "%s without selections", slot.Label())

		m = valid()
		m[slot] = append(m[slot], sel(&big, 6))
		assert.False(t, ValidateAll(slotSelections(m)), "%s over the limit", slot.Label())

		m = valid()
		m[slot] = []model.SlotSelection{sel(&empty, 6)}
		assert.False(t, ValidateAll(slotSelections(m)), "%s with zero frames", slot.Label())

		m = valid()
		delete(m, slot)
		assert.False(t, ValidateAll(slotSelections(m)), "%s missing from the map", slot.Label())
	}
}

func TestValidateSlotsReturnsEveryResult(t *testing.T) {
	base := baseConfig()
	ok, results := ValidateSlots(slotSelections(map[model.Slot][]model.SlotSelection{
		model.SlotLED1: {sel(&base, 5)},
	}))
	assert.False(t, ok)
	assert.Equal(t, 3, results.Len())

	r5, _ := results.Get(model.SlotLED1)
	assert.True(t, r5.IsValid)
	r6, _ := results.Get(model.SlotLED2)
	assert.False(t, r6.IsValid)
	assert.Equal(t, WarnNoSelections, r6.Warning)
}

func TestMergeNilBase(t *testing.T) {
	_, err := Merge(nil, model.SlotMap[model.ConcatenationResult]{})
	assert.ErrorIs(t, err, ErrMissingBase)
}

func TestMergeEmptyResultsIsIdentity(t *testing.T) {
	base := baseConfig()
	out, err := Merge(&base, model.SlotMap[model.ConcatenationResult]{})
	require.NoError(t, err)
	assert.Equal(t, base, out)

	decoded, err := model.DecodeConfiguration(mustEncode(t, base))
	require.NoError(t, err)
	out, err = Merge(&decoded, model.SlotMap[model.ConcatenationResult]{})
	require.NoError(t, err)
	assert.Equal(t, decoded, out)
	assert.JSONEq(t, string(mustEncode(t, decoded)), string(mustEncode(t, out)))
}

func TestMergePreservesBaseMembers(t *testing.T) {
	base := baseConfig()
	src := testConfig(testPage(5, 10, "#ABCDEF"))
	var results model.SlotMap[model.ConcatenationResult]
	results.Set(model.SlotLED1, Concatenate([]model.SlotSelection{sel(&src, 5)}))

	out, err := Merge(&base, results)
	require.NoError(t, err)

	assert.JSONEq(t, `{"x":1}`, string(out.ProductInfo()))
	page, ok := out.FindPage(5)
	require.True(t, ok)
	lightness, _ := page.Fields.Get("lightness")
	assert.JSONEq(t, "7", string(lightness))
	require.Len(t, page.Frames.Frames, 10)
	for i, f := range page.Frames.Frames {
		assert.Equal(t, i, f.Index)
	}

	// the encoded artifact carries the new frames and frame count
	var doc struct {
		ProductInfo json.RawMessage `json:"product_info"`
		PageData    []struct {
			PageIndex int `json:"page_index"`
			Lightness int `json:"lightness"`
			Frames    struct {
				FrameNum  int `json:"frame_num"`
				FrameData []struct {
					FrameIndex int `json:"frame_index"`
				} `json:"frame_data"`
			} `json:"frames"`
		} `json:"page_data"`
	}
	require.NoError(t, json.Unmarshal(mustEncode(t, out), &doc))
	require.Len(t, doc.PageData, 4)
	slot5 := doc.PageData[1]
	assert.Equal(t, 5, slot5.PageIndex)
	assert.Equal(t, 7, slot5.Lightness)
	assert.Equal(t, 10, slot5.Frames.FrameNum)
	require.Len(t, slot5.Frames.FrameData, 10)
	assert.Equal(t, 9, slot5.Frames.FrameData[9].FrameIndex)

	// untouched pages and the input are left alone
	assert.Equal(t, base.Pages[0], out.Pages[0])
	assert.Equal(t, base.Pages[2], out.Pages[2])
	assert.Equal(t, base.Pages[3], out.Pages[3])
	assert.Len(t, base.Pages[1].Frames.Frames, 1)
}

func TestMergeDropsSlotsMissingFromBase(t *testing.T) {
	base := testConfig(testPage(5, 1, "#FFFFFF"))
	src := testConfig(testPage(7, 4, "#000000"))
	var results model.SlotMap[model.ConcatenationResult]
	results.Set(model.SlotLED3, Concatenate([]model.SlotSelection{sel(&src, 7)}))

	out, err := Merge(&base, results)
	require.NoError(t, err)
	assert.Equal(t, base, out)
}

func TestMergeIgnoresResultsWithoutPage(t *testing.T) {
	base := baseConfig()
	var results model.SlotMap[model.ConcatenationResult]
	results.Set(model.SlotLED2, Concatenate(nil))

	out, err := Merge(&base, results)
	require.NoError(t, err)
	assert.Equal(t, base, out)
}

// Base has one frame per slot; a second file adds two frames to LED 1 from
// its page 6.
func TestMergeAddsSecondFileToSlot(t *testing.T) {
	base := baseConfig()
	second := testConfig(testPage(6, 2, "#ABABAB"))

	selections := slotSelections(map[model.Slot][]model.SlotSelection{
		model.SlotLED1: {sel(&base, 5), sel(&second, 6)},
		model.SlotLED2: {sel(&base, 6)},
		model.SlotLED3: {sel(&base, 7)},
	})
	ok, results := ValidateSlots(selections)
	require.True(t, ok)
	assert.True(t, ValidateAll(selections))

	r5, _ := results.Get(model.SlotLED1)
	page5, _ := r5.Page()
	require.Len(t, page5.Frames.Frames, 3)
	for i, f := range page5.Frames.Frames {
		assert.Equal(t, i, f.Index)
	}

	out, err := Merge(&base, results)
	require.NoError(t, err)
	merged5, _ := out.FindPage(5)
	assert.Equal(t, 3, merged5.Frames.Len())
	assert.Equal(t, 3, *merged5.Frames.Count)

	merged6, _ := out.FindPage(6)
	base6, _ := base.FindPage(6)
	assert.Equal(t, base6.Frames.Frames, merged6.Frames.Frames)
	merged7, _ := out.FindPage(7)
	base7, _ := base.FindPage(7)
	assert.Equal(t, base7.Frames.Frames, merged7.Frames.Frames)
}

func TestOverLimitSlotBlocksValidation(t *testing.T) {
	base := baseConfig()
	extra := testConfig(testPage(6, 150, "#FFFFFF"), testPage(7, 150, "#000000"))

	selections := slotSelections(map[model.Slot][]model.SlotSelection{
		model.SlotLED1: {sel(&base, 5)},
		model.SlotLED2: {sel(&base, 6), sel(&extra, 6), sel(&extra, 7)},
		model.SlotLED3: {sel(&base, 7)},
	})
	ok, results := ValidateSlots(selections)
	assert.False(t, ok)
	r6, _ := results.Get(model.SlotLED2)
	assert.False(t, r6.IsValid)
	assert.Equal(t, 301, r6.TotalFrames)
	assert.Contains(t, r6.Warning, "301")
	assert.Contains(t, r6.Warning, "300")
}

func mustEncode(t *testing.T, cfg model.Configuration) []byte {
	t.Helper()
	b, err := model.EncodeConfiguration(cfg)
	require.NoError(t, err)
	return b
}

func TestMergeKeepsFrameMembers(t *testing.T) {
	base, err := model.DecodeConfiguration([]byte(`{"page_data": [
		{"page_index": 0, "frames": {"frame_num": 1, "frame_data": [{"frame_index": "0", "frame_RGB": ["#FFFFFF"], "duration_ms": 40}]}},
		{"page_index": 5, "frames": {"frame_num": 1, "frame_data": [{"frame_index": 0}]}},
		{"page_index": 6, "frames": {"frame_num": 1, "frame_data": [{"frame_index": 0, "frame_RGB": ["#666666"], "hold": true}]}},
		{"page_index": 7, "frames": {"frame_num": 1, "frame_data": [{"frame_index": 0, "frame_RGB": ["#777777"]}]}}
	]}`))
	require.NoError(t, err)
	src, err := model.DecodeConfiguration([]byte(`{"page_data": [
		{"page_index": 6, "frames": {"frame_num": 1, "frame_data": [{"frame_index": 0, "frame_RGB": ["#AAAAAA"], "duration_ms": 25}]}}
	]}`))
	require.NoError(t, err)

	ok, results := ValidateSlots(slotSelections(map[model.Slot][]model.SlotSelection{
		model.SlotLED1: {sel(&base, 5)},
		model.SlotLED2: {sel(&base, 6), sel(&src, 6)},
		model.SlotLED3: {sel(&base, 7)},
	}))
	require.True(t, ok)
	merged, err := Merge(&base, results)
	require.NoError(t, err)

	out, err := json.Marshal(merged)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `{"frame_index":"0","frame_RGB":["#FFFFFF"],"duration_ms":40}`)
	assert.Contains(t, s, `"frame_data":[{"frame_index":0}]`)
	assert.Contains(t, s, `{"frame_index":0,"frame_RGB":["#666666"],"hold":true}`)
	assert.Contains(t, s, `{"frame_index":1,"frame_RGB":["#AAAAAA"],"duration_ms":25}`)
	assert.NotContains(t, s, `null`)
}
