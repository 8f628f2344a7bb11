package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field is one member of a JSON object. Value holds the member's bytes as they
// were read; a nil Value marks a member whose content is owned by a typed field
// of the enclosing struct and is rendered from it on encode.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Fields keeps the members of a JSON object in document order so that values
// this package never interprets survive a decode/encode cycle untouched.
type Fields []Field

func (f Fields) Get(key string) (json.RawMessage, bool) {
	for _, fl := range f {
		if fl.Key == key {
			return fl.Value, true
		}
	}
	return nil, false
}

func (f Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Set replaces the value of key in place, or appends the member when absent.
func (f *Fields) Set(key string, value json.RawMessage) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: value})
}

func (f *Fields) Delete(key string) {
	out := (*f)[:0]
	for _, fl := range *f {
		if fl.Key != key {
			out = append(out, fl)
		}
	}
	*f = out
}

func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for i, fl := range f {
		out[i] = Field{Key: fl.Key, Value: cloneRaw(fl.Value)}
	}
	return out
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fl := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(fl.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(fl.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(fl.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	*f = fields
	return nil
}

var errNotObject = errors.New("expected a JSON object")

func decodeObject(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}
	fields := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	out := make(json.RawMessage, len(r))
	copy(out, r)
	return out
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeIndex reads a non-negative integer that device tools write as a number,
// a numeric string or a bool.
func decodeIndex(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case json.Number:
		return parseIndex(t.String())
	case string:
		return parseIndex(strings.TrimSpace(t))
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected a number, got %s", string(raw))
	}
}

func parseIndex(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative index %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return int(f), nil
}

// setIndex writes n under key unless the stored value already decodes to n, so
// that indices written as strings keep their original spelling.
func (f *Fields) setIndex(key string, n int) {
	if raw, ok := f.Get(key); ok && raw != nil {
		if cur, err := decodeIndex(raw); err == nil && cur == n {
			return
		}
	}
	f.Set(key, json.RawMessage(strconv.Itoa(n)))
}
