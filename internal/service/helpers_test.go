package service

import (
	"encoding/json"
	"strconv"

	"led-frame-merger/internal/model"
)

func testFrames(n int, color string) []model.Frame {
	out := make([]model.Frame, n)
	for i := range out {
		out[i] = model.Frame{Index: i, RGB: []string{color, color, color}}
	}
	return out
}

func testPage(index, frames int, color string) model.Page {
	return model.Page{
		Index:  index,
		Frames: model.FrameSequence{}.WithFrames(testFrames(frames, color)),
		Fields: model.Fields{
			{Key: "lightness", Value: json.RawMessage("7")},
			{Key: "speed_ms", Value: json.RawMessage("100")},
		},
	}
}

func testConfig(pages ...model.Page) model.Configuration {
	return model.Configuration{
		Pages: pages,
		Fields: model.Fields{
			{Key: "product_info", Value: json.RawMessage(`{"x":1}`)},
			{Key: "page_num", Value: json.RawMessage(strconv.Itoa(len(pages)))},
			{Key: "page_data"},
		},
	}
}

// baseConfig has one frame on each of the LED slots plus a static page 0.
func baseConfig() model.Configuration {
	return testConfig(
		testPage(0, 1, "#111111"),
		testPage(5, 1, "#555555"),
		testPage(6, 1, "#666666"),
		testPage(7, 1, "#777777"),
	)
}

func sel(cfg *model.Configuration, slot int) model.SlotSelection {
	return model.SlotSelection{Source: cfg, SourceSlot: slot}
}

func slotSelections(m map[model.Slot][]model.SlotSelection) model.SlotMap[[]model.SlotSelection] {
	var out model.SlotMap[[]model.SlotSelection]
	for slot, sels := range m {
		out.Set(slot, sels)
	}
	return out
}
