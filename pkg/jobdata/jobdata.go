// Package jobdata provides the ordered, dirty-tracked parameter map passed to jobs.
package jobdata

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

var (
	// ErrKeyNotFound is returned when no value is stored under a key.
	ErrKeyNotFound = errors.New("jobdata: key not found")
	// ErrTypeMismatch is returned when a stored value cannot be coerced to the requested type.
	ErrTypeMismatch = errors.New("jobdata: type mismatch")
)

// Map is an insertion-ordered string-keyed store.
//
// Any mutation sets the dirty flag, which the scheduler uses to decide whether
// job data must be written back. Typed getters coerce from the stored value or
// from its string form and fail at access time, never at Put time.
// A Map is not safe for concurrent use.
type Map struct {
	keys   []string
	values map[string]any
	dirty  bool
}

// New creates an empty map.
func New() *Map {
	return &Map{values: make(map[string]any)}
}

// FromMap creates a clean map holding the entries of m in key order.
func FromMap(m map[string]any) *Map {
	d := New()
	for _, k := range sortedKeys(m) {
		d.set(k, m[k])
	}
	d.dirty = false
	return d
}

func (m *Map) set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	m.dirty = true
}

// Put stores value under key.
func (m *Map) Put(key string, value any) {
	m.set(key, value)
}

// PutAll copies every entry of other, in order.
func (m *Map) PutAll(other *Map) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.set(k, other.values[k])
	}
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// Contains reports whether key is present.
func (m *Map) Contains(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Remove deletes key. It reports whether the key was present.
func (m *Map) Remove(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	m.dirty = true
	return true
}

// Clear removes all entries.
func (m *Map) Clear() {
	if len(m.keys) == 0 {
		return
	}
	m.keys = nil
	m.values = make(map[string]any)
	m.dirty = true
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// IsEmpty reports whether the map has no entries.
func (m *Map) IsEmpty() bool { return len(m.keys) == 0 }

// Dirty reports whether the map changed since the last ClearDirty.
func (m *Map) Dirty() bool { return m.dirty }

// ClearDirty resets the dirty flag.
func (m *Map) ClearDirty() { m.dirty = false }

// Duplicate returns a deep copy. The copy keeps its own dirty flag, starting
// from the current value.
func (m *Map) Duplicate() *Map {
	cp := &Map{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
		dirty:  m.dirty,
	}
	copy(cp.keys, m.keys)
	for k, v := range m.values {
		cp.values[k] = cloneValue(v)
	}
	return cp
}

// ToMap returns the entries as a plain map.
func (m *Map) ToMap() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// --- String-form puts ---

// PutIntAsString stores the decimal form of v.
func (m *Map) PutIntAsString(key string, v int) { m.set(key, strconv.Itoa(v)) }

// PutInt64AsString stores the decimal form of v.
func (m *Map) PutInt64AsString(key string, v int64) { m.set(key, strconv.FormatInt(v, 10)) }

// PutFloat32AsString stores the shortest decimal form of v.
func (m *Map) PutFloat32AsString(key string, v float32) {
	m.set(key, strconv.FormatFloat(float64(v), 'g', -1, 32))
}

// PutFloat64AsString stores the shortest decimal form of v.
func (m *Map) PutFloat64AsString(key string, v float64) {
	m.set(key, strconv.FormatFloat(v, 'g', -1, 64))
}

// PutBoolAsString stores "true" or "false".
func (m *Map) PutBoolAsString(key string, v bool) { m.set(key, strconv.FormatBool(v)) }

// PutCharAsString stores v as a one-character string.
func (m *Map) PutCharAsString(key string, v rune) { m.set(key, string(v)) }

// --- Typed getters ---

func (m *Map) lookup(key string) (any, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

func mismatch(key, want string, v any) error {
	return fmt.Errorf("%w: %q holds %T, not %s", ErrTypeMismatch, key, v, want)
}

// Int returns the value as an int.
func (m *Map) Int(key string) (int, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, mismatch(key, "int", v)
		}
		return n, nil
	}
	return 0, mismatch(key, "int", v)
}

// Int64 returns the value as an int64.
func (m *Map) Int64(key string) (int64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, mismatch(key, "int64", v)
		}
		return n, nil
	}
	return 0, mismatch(key, "int64", v)
}

// Float32 returns the value as a float32.
func (m *Map) Float32(key string) (float32, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float32:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(x, 32)
		if err != nil {
			return 0, mismatch(key, "float32", v)
		}
		return float32(f), nil
	}
	return 0, mismatch(key, "float32", v)
}

// Float64 returns the value as a float64.
func (m *Map) Float64(key string) (float64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, mismatch(key, "float64", v)
		}
		return f, nil
	}
	return 0, mismatch(key, "float64", v)
}

// Bool returns the value as a bool.
func (m *Map) Bool(key string) (bool, error) {
	v, err := m.lookup(key)
	if err != nil {
		return false, err
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, mismatch(key, "bool", v)
		}
		return b, nil
	}
	return false, mismatch(key, "bool", v)
}

// Char returns the value as a rune. A string yields its first character.
func (m *Map) Char(key string) (rune, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case rune:
		return x, nil
	case string:
		r, size := utf8.DecodeRuneInString(x)
		if size == 0 || r == utf8.RuneError {
			return 0, mismatch(key, "char", v)
		}
		return r, nil
	}
	return 0, mismatch(key, "char", v)
}

// String returns the value as a string. Only string values qualify.
func (m *Map) String(key string) (string, error) {
	v, err := m.lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", mismatch(key, "string", v)
	}
	return s, nil
}
