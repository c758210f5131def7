package jobdata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPut_SetsDirty(t *testing.T) {
	m := New()
	assert.False(t, m.Dirty())

	m.Put("count", 3)
	assert.True(t, m.Dirty())

	m.ClearDirty()
	assert.False(t, m.Dirty())

	m.Remove("count")
	assert.True(t, m.Dirty())
}

func TestRemove_Missing(t *testing.T) {
	m := New()
	assert.False(t, m.Remove("nope"))
	assert.False(t, m.Dirty())
}

func TestKeys_InsertionOrder(t *testing.T) {
	m := New()
	m.Put("z", 1)
	m.Put("a", 2)
	m.Put("m", 3)
	m.Put("a", 4) // overwrite keeps original position

	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	assert.Equal(t, 3, m.Len())

	m.Remove("a")
	assert.Equal(t, []string{"z", "m"}, m.Keys())
}

func TestGet_Missing(t *testing.T) {
	m := New()
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = m.Int("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestTypedGetters_NativeValues(t *testing.T) {
	m := New()
	m.Put("int", 7)
	m.Put("long", int64(1<<40))
	m.Put("float", float32(1.5))
	m.Put("double", 2.25)
	m.Put("bool", true)
	m.Put("char", 'x')
	m.Put("string", "hello")

	i, err := m.Int("int")
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	l, err := m.Int64("long")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), l)

	f, err := m.Float32("float")
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)

	d, err := m.Float64("double")
	require.NoError(t, err)
	assert.Equal(t, 2.25, d)

	b, err := m.Bool("bool")
	require.NoError(t, err)
	assert.True(t, b)

	c, err := m.Char("char")
	require.NoError(t, err)
	assert.Equal(t, 'x', c)

	s, err := m.String("string")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestPutAsString_RoundTrip(t *testing.T) {
	m := New()
	m.PutIntAsString("int", 42)
	m.PutInt64AsString("long", -9000000000)
	m.PutFloat32AsString("float", 0.5)
	m.PutFloat64AsString("double", 3.125)
	m.PutBoolAsString("bool", false)
	m.PutCharAsString("char", 'é')

	raw, err := m.Get("int")
	require.NoError(t, err)
	assert.Equal(t, "42", raw)

	i, err := m.Int("int")
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	l, err := m.Int64("long")
	require.NoError(t, err)
	assert.Equal(t, int64(-9000000000), l)

	f, err := m.Float32("float")
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), f)

	d, err := m.Float64("double")
	require.NoError(t, err)
	assert.Equal(t, 3.125, d)

	b, err := m.Bool("bool")
	require.NoError(t, err)
	assert.False(t, b)

	c, err := m.Char("char")
	require.NoError(t, err)
	assert.Equal(t, 'é', c)
}

func TestTypedGetters_Mismatch(t *testing.T) {
	m := New()
	m.Put("word", "abc")
	m.Put("num", 5)
	m.Put("empty", "")

	_, err := m.Int("word")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = m.Int64("num") // int is not int64
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = m.Float64("word")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = m.Bool("word")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = m.Char("empty")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = m.String("num")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestPut_AcceptsAnything(t *testing.T) {
	// Coercion failures surface at access time only.
	m := New()
	m.Put("list", []string{"a"})
	_, err := m.Int("list")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestDuplicate_IsDeep(t *testing.T) {
	m := New()
	m.Put("a", 1)
	m.ClearDirty()

	cp := m.Duplicate()
	assert.False(t, cp.Dirty())

	cp.Put("b", 2)
	assert.True(t, cp.Dirty())
	assert.False(t, m.Dirty())
	assert.False(t, m.Contains("b"))
	assert.Equal(t, []string{"a"}, m.Keys())
}

func TestDuplicate_CopiesNestedValues(t *testing.T) {
	type point struct {
		X    int
		Tags []string
	}
	m := New()
	m.Put("list", []string{"a"})
	m.Put("nested", map[string]any{"inner": []int{1, 2}})
	m.Put("point", &point{X: 1, Tags: []string{"t"}})

	cp := m.Duplicate()
	list, err := cp.Get("list")
	require.NoError(t, err)
	list.([]string)[0] = "changed"
	nested, err := cp.Get("nested")
	require.NoError(t, err)
	nested.(map[string]any)["inner"].([]int)[0] = 99
	nested.(map[string]any)["added"] = true
	p, err := cp.Get("point")
	require.NoError(t, err)
	p.(*point).X = 2
	p.(*point).Tags[0] = "changed"

	orig, _ := m.Get("list")
	assert.Equal(t, []string{"a"}, orig)
	origNested, _ := m.Get("nested")
	assert.Equal(t, map[string]any{"inner": []int{1, 2}}, origNested)
	origPoint, _ := m.Get("point")
	assert.Equal(t, &point{X: 1, Tags: []string{"t"}}, origPoint)
}

func TestDuplicate_PreservesDirty(t *testing.T) {
	m := New()
	m.Put("a", 1)
	cp := m.Duplicate()
	assert.True(t, cp.Dirty())

	cp.ClearDirty()
	assert.True(t, m.Dirty())
}

func TestFromMap_IsClean(t *testing.T) {
	m := FromMap(map[string]any{"b": 1, "a": "x"})
	assert.False(t, m.Dirty())
	assert.Equal(t, []string{"a", "b"}, m.Keys())
}

func TestPutAll_And_Clear(t *testing.T) {
	src := FromMap(map[string]any{"k": "v"})
	dst := New()
	dst.PutAll(src)
	assert.True(t, dst.Contains("k"))
	assert.True(t, dst.Dirty())

	dst.ClearDirty()
	dst.Clear()
	assert.True(t, dst.IsEmpty())
	assert.True(t, dst.Dirty())
}

func TestJSON_PreservesTypesAndOrder(t *testing.T) {
	m := New()
	m.Put("s", "text")
	m.Put("i", 12)
	m.Put("l", int64(13))
	m.Put("f", float32(1.25))
	m.Put("d", 6.5)
	m.Put("b", true)
	m.Put("c", 'q')
	m.Put("obj", map[string]any{"n": 1.0})

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	out := New()
	require.NoError(t, json.Unmarshal(raw, out))
	assert.False(t, out.Dirty())
	assert.Equal(t, m.Keys(), out.Keys())

	i, err := out.Int("i")
	require.NoError(t, err)
	assert.Equal(t, 12, i)

	l, err := out.Int64("l")
	require.NoError(t, err)
	assert.Equal(t, int64(13), l)

	c, err := out.Char("c")
	require.NoError(t, err)
	assert.Equal(t, 'q', c)

	obj, err := out.Get("obj")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 1.0}, obj)
}

func TestJSON_UnknownType(t *testing.T) {
	out := New()
	err := json.Unmarshal([]byte(`[{"key":"x","type":"blob","value":"1"}]`), out)
	assert.Error(t, err)
}
