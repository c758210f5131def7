package jobdata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// entry is the stored form of one value. Scalar types keep their Go type across
// a round trip; anything else is kept as raw JSON and decodes to generic values.
type entry struct {
	Key   string          `json:"key"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

const (
	typeString  = "string"
	typeInt     = "int"
	typeInt64   = "int64"
	typeFloat32 = "float32"
	typeFloat64 = "float64"
	typeBool    = "bool"
	typeChar    = "char"
	typeJSON    = "json"
)

// MarshalJSON encodes the map as an ordered list of typed entries.
func (m *Map) MarshalJSON() ([]byte, error) {
	entries := make([]entry, 0, len(m.keys))
	for _, k := range m.keys {
		e, err := encodeEntry(k, m.values[k])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return json.Marshal(entries)
}

// UnmarshalJSON replaces the contents of m. The result is clean.
func (m *Map) UnmarshalJSON(data []byte) error {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("jobdata: decode: %w", err)
	}
	fresh := New()
	for _, e := range entries {
		v, err := decodeEntry(e)
		if err != nil {
			return err
		}
		fresh.set(e.Key, v)
	}
	fresh.dirty = false
	*m = *fresh
	return nil
}

func encodeEntry(key string, v any) (entry, error) {
	var typ, text string
	switch x := v.(type) {
	case string:
		typ, text = typeString, x
	case int:
		typ, text = typeInt, strconv.Itoa(x)
	case int64:
		typ, text = typeInt64, strconv.FormatInt(x, 10)
	case float32:
		typ, text = typeFloat32, strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		typ, text = typeFloat64, strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		typ, text = typeBool, strconv.FormatBool(x)
	case rune:
		typ, text = typeChar, string(x)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return entry{}, fmt.Errorf("jobdata: encode %q: %w", key, err)
		}
		return entry{Key: key, Type: typeJSON, Value: raw}, nil
	}
	raw, err := json.Marshal(text)
	if err != nil {
		return entry{}, fmt.Errorf("jobdata: encode %q: %w", key, err)
	}
	return entry{Key: key, Type: typ, Value: raw}, nil
}

func decodeEntry(e entry) (any, error) {
	if e.Type == typeJSON {
		var v any
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("jobdata: decode %q: %w", e.Key, err)
		}
		return v, nil
	}
	var text string
	if err := json.Unmarshal(e.Value, &text); err != nil {
		return nil, fmt.Errorf("jobdata: decode %q: %w", e.Key, err)
	}
	bad := func(err error) error {
		return fmt.Errorf("jobdata: decode %q as %s: %w", e.Key, e.Type, err)
	}
	switch e.Type {
	case typeString:
		return text, nil
	case typeInt:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, bad(err)
		}
		return n, nil
	case typeInt64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, bad(err)
		}
		return n, nil
	case typeFloat32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, bad(err)
		}
		return float32(f), nil
	case typeFloat64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, bad(err)
		}
		return f, nil
	case typeBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, bad(err)
		}
		return b, nil
	case typeChar:
		r := []rune(text)
		if len(r) != 1 {
			return nil, bad(fmt.Errorf("want one character, got %d", len(r)))
		}
		return r[0], nil
	}
	return nil, fmt.Errorf("jobdata: decode %q: unknown type %q", e.Key, e.Type)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
