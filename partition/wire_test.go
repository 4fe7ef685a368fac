package partition

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireFieldNamesAreStable(t *testing.T) {
	tmpl, err := New([]TemplatePart{
		TimeFormat("%Y-%m-%d"),
		TagValue("host"),
		BucketPart("region", 16),
	})
	require.NoError(t, err)

	b, err := tmpl.MarshalJSON()
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))

	parts, ok := generic["parts"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 3)

	part0 := parts[0].(map[string]any)
	assert.Contains(t, part0, "timeFormat")

	part1 := parts[1].(map[string]any)
	assert.Contains(t, part1, "tagValue")

	part2 := parts[2].(map[string]any)
	bucket, ok := part2["bucket"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, bucket, "tagName")
	assert.Contains(t, bucket, "numBuckets")
}

func TestWireRoundTrip(t *testing.T) {
	tmpl, err := New([]TemplatePart{TimeFormat("%Y"), TagValue("a"), BucketPart("b", 5)})
	require.NoError(t, err)

	b, err := tmpl.MarshalJSON()
	require.NoError(t, err)

	var back Template
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, tmpl.Parts(), back.Parts())
}

func TestEncodedSizeReporting(t *testing.T) {
	tmpl, err := New([]TemplatePart{TimeFormat("%Y-%m-%d")})
	require.NoError(t, err)
	size, err := tmpl.EncodedSize()
	require.NoError(t, err)
	assert.Greater(t, size, 0)
}
