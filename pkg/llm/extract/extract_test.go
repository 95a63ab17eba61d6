package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectWithSurroundingProse(t *testing.T) {
	raw, err := Object("Sure, here you go:\n{\"a\":1,\"b\":[2,3]}\nLet me know!")
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, float64(1), parsed["a"])
	assert.Equal(t, []any{float64(2), float64(3)}, parsed["b"])
}

func TestObjectPureJSON(t *testing.T) {
	raw, err := Object(`{"a":1,"b":[2,3]}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":[2,3]}`, string(raw))
}

func TestObjectMarkdownFence(t *testing.T) {
	content := "Here is the result:\n```json\n{\"name\": \"demo\"}\n```\nDone."
	raw, err := Object(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"demo"}`, string(raw))
}

func TestObjectNotJSON(t *testing.T) {
	_, err := Object("not json at all")
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestObjectTrailingCommaAndComments(t *testing.T) {
	content := `{
		"items": ["a", "b",], // generated list
		"url": "http://example.com"
	}`
	raw, err := Object(content)
	require.NoError(t, err)

	var parsed struct {
		Items []string `json:"items"`
		URL   string   `json:"url"`
	}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, []string{"a", "b"}, parsed.Items)
	assert.Equal(t, "http://example.com", parsed.URL)
}

func TestDecode(t *testing.T) {
	var dest struct {
		Complexity string `json:"complexity"`
	}
	err := Decode("Result below.\n{\"complexity\": \"Medium\"}", &dest)
	require.NoError(t, err)
	assert.Equal(t, "Medium", dest.Complexity)
}

func TestDecodeTypeMismatch(t *testing.T) {
	var dest struct {
		Count int `json:"count"`
	}
	err := Decode(`{"count": "three"}`, &dest)
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}
