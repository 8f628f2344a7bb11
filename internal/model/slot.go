package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Slot is one of the three user-editable LED pages, identified by its
// reserved page_index.
type Slot int

const (
	SlotLED1 Slot = 5
	SlotLED2 Slot = 6
	SlotLED3 Slot = 7
)

const slotCount = 3

var AllSlots = [slotCount]Slot{SlotLED1, SlotLED2, SlotLED3}

func ParseSlot(v int) (Slot, error) {
	s := Slot(v)
	if !s.Valid() {
		return 0, fmt.Errorf("page %d is not an editable LED slot", v)
	}
	return s, nil
}

func (s Slot) Valid() bool {
	return s >= SlotLED1 && s <= SlotLED3
}

func (s Slot) PageIndex() int {
	return int(s)
}

// Label is the name shown to users: LED 1..3.
func (s Slot) Label() string {
	return "LED " + strconv.Itoa(int(s-SlotLED1)+1)
}

func (s Slot) position() int {
	return int(s - SlotLED1)
}

// SlotMap is a fixed registry holding at most one value per editable slot.
type SlotMap[T any] struct {
	values  [slotCount]T
	present [slotCount]bool
}

func (m *SlotMap[T]) Set(s Slot, v T) bool {
	if !s.Valid() {
		return false
	}
	m.values[s.position()] = v
	m.present[s.position()] = true
	return true
}

func (m SlotMap[T]) Get(s Slot) (T, bool) {
	var zero T
	if !s.Valid() || !m.present[s.position()] {
		return zero, false
	}
	return m.values[s.position()], true
}

func (m SlotMap[T]) Has(s Slot) bool {
	return s.Valid() && m.present[s.position()]
}

func (m *SlotMap[T]) Delete(s Slot) {
	if !s.Valid() {
		return
	}
	var zero T
	m.values[s.position()] = zero
	m.present[s.position()] = false
}

func (m SlotMap[T]) Len() int {
	n := 0
	for _, ok := range m.present {
		if ok {
			n++
		}
	}
	return n
}

// Each visits present entries in slot order.
func (m SlotMap[T]) Each(fn func(Slot, T)) {
	for i, s := range AllSlots {
		if m.present[i] {
			fn(s, m.values[i])
		}
	}
}

func (m SlotMap[T]) MarshalJSON() ([]byte, error) {
	fields := Fields{}
	var err error
	m.Each(func(s Slot, v T) {
		if err != nil {
			return
		}
		b, mErr := marshalNoEscape(v)
		if mErr != nil {
			err = mErr
			return
		}
		fields = append(fields, Field{Key: strconv.Itoa(int(s)), Value: b})
	})
	if err != nil {
		return nil, err
	}
	return fields.MarshalJSON()
}

func (m *SlotMap[T]) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out SlotMap[T]
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("slot key %q: %w", k, err)
		}
		s, err := ParseSlot(n)
		if err != nil {
			return err
		}
		var val T
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("slot %d: %w", n, err)
		}
		out.Set(s, val)
	}
	*m = out
	return nil
}
