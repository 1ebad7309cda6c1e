package ednconf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeMapScalars(t *testing.T) {
	m, err := DecodeMap(`{:id 1 :title "hello world" :done? false :parent nil}`)
	require.NoError(t, err)

	id, ok := m.GetInt("id")
	require.True(t, ok)
	require.Equal(t, int64(1), id)
	require.Equal(t, "hello world", m.GetString("title"))
	require.False(t, m.GetBool("done?", true))
	v, ok := m.Get("parent")
	require.True(t, ok)
	require.Nil(t, v)
}

func TestDecodeStringKeys(t *testing.T) {
	m, err := DecodeMap(`{"id" 2 "title" "from string keys"}`)
	require.NoError(t, err)
	id, ok := m.GetInt("id")
	require.True(t, ok)
	require.Equal(t, int64(2), id)
	require.Equal(t, "from string keys", m.GetString("title"))
}

func TestDecodeNestedVectorOfMaps(t *testing.T) {
	m, err := DecodeMap(`{:id 3 :relations [{:id 1 :relates-to 2 :as-type :blocked-by}]}`)
	require.NoError(t, err)
	rels := m.GetVector("relations")
	require.Len(t, rels, 1)
	rel, ok := rels[0].(*Map)
	require.True(t, ok)
	asType, ok := rel.Get("as-type")
	require.True(t, ok)
	s, ok := Unkeyword(asType)
	require.True(t, ok)
	require.Equal(t, "blocked-by", s)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := NewMap()
	m.Set("id", int64(42))
	m.Set("title", "A \"quoted\" task")
	m.Set("status", Keyword("open"))
	m.Set("tags", []interface{}{"a", "b"})

	encoded := Encode(m)
	decoded, err := DecodeMap(encoded)
	require.NoError(t, err)

	id, ok := decoded.GetInt("id")
	require.True(t, ok)
	require.Equal(t, int64(42), id)
	require.Equal(t, "A \"quoted\" task", decoded.GetString("title"))
	status, _ := decoded.Get("status")
	s, ok := Unkeyword(status)
	require.True(t, ok)
	require.Equal(t, "open", s)
}

func TestDecodeMapRejectsNonMap(t *testing.T) {
	_, err := DecodeMap(`[1 2 3]`)
	require.Error(t, err)
}

func TestDecodeTrailingGarbageErrors(t *testing.T) {
	_, err := Decode(`{:a 1} garbage`)
	require.Error(t, err)
}
