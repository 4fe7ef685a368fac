package partition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureTemplate(t *testing.T) Template {
	t.Helper()
	tmpl, err := New([]TemplatePart{
		TimeFormat("%Y"),
		TagValue("a"),
		TagValue("b"),
		BucketPart("c", 10),
	})
	require.NoError(t, err)
	return tmpl
}

func collect(t Template, key string) map[string]ColumnValue {
	out := map[string]ColumnValue{}
	for name, v := range BuildColumnValues(t, key) {
		out[name] = v
	}
	return out
}

func TestFixture1FullRow(t *testing.T) {
	tmpl := fixtureTemplate(t)
	got := collect(tmpl, "2023|bananas|plátanos|5")

	require.Contains(t, got, TimeColumnName)
	dt := got[TimeColumnName]
	assert.Equal(t, ColumnDatetime, dt.Kind)
	assert.True(t, dt.Begin.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, dt.End.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, ColumnValue{Kind: ColumnIdentity, Identity: "bananas"}, got["a"])
	assert.Equal(t, ColumnValue{Kind: ColumnIdentity, Identity: "plátanos"}, got["b"])
	assert.Equal(t, uint32(5), got["c"].BucketID)
	assert.Equal(t, uint32(10), got["c"].BucketNumBuckets)
}

func TestFixture2MissingColumns(t *testing.T) {
	tmpl := fixtureTemplate(t)
	got := collect(tmpl, "2023|!|plátanos|!")

	assert.NotContains(t, got, "a")
	assert.NotContains(t, got, "c")
	assert.Contains(t, got, TimeColumnName)
	assert.Equal(t, "plátanos", got["b"].Identity)
}

func TestFixture3PercentDecoding(t *testing.T) {
	tmpl := fixtureTemplate(t)
	got := collect(tmpl, "2023|cat%7Cdog|%21|8")

	assert.Equal(t, "cat|dog", got["a"].Identity)
	assert.Equal(t, "!", got["b"].Identity)
	assert.Equal(t, uint32(8), got["c"].BucketID)
}

func TestFixture4EmptyAndZeroBucket(t *testing.T) {
	tmpl := fixtureTemplate(t)
	got := collect(tmpl, "2023|^|!|0")

	assert.Equal(t, ColumnValue{Kind: ColumnIdentity, Identity: ""}, got["a"])
	assert.NotContains(t, got, "b")
	assert.Equal(t, uint32(0), got["c"].BucketID)
}

func TestFixture5PrefixValue(t *testing.T) {
	tmpl := fixtureTemplate(t)
	got := collect(tmpl, "2023|BANANAS#|!|!")

	assert.Equal(t, ColumnValue{Kind: ColumnPrefix, Prefix: "BANANAS"}, got["a"])
	assert.False(t, got["a"].IsPrefixMatchOf("bananas"))
	assert.True(t, got["a"].IsPrefixMatchOf("BANANASnthatched"))
	assert.NotContains(t, got, "b")
	assert.NotContains(t, got, "c")
}

func TestFixture6DayGranularity(t *testing.T) {
	tmpl, err := New([]TemplatePart{TimeFormat("%Y-%m-%d")})
	require.NoError(t, err)
	got := collect(tmpl, "2023-12-31")

	dt := got[TimeColumnName]
	assert.True(t, dt.Begin.Equal(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, dt.End.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDecodeToleratesStructuralMismatch(t *testing.T) {
	tmpl := fixtureTemplate(t)
	// Fewer '|' parts than the template expects: zipped iterator just stops.
	got := collect(tmpl, "2023|bananas")
	assert.Contains(t, got, TimeColumnName)
	assert.Equal(t, "bananas", got["a"].Identity)
	assert.NotContains(t, got, "b")
	assert.NotContains(t, got, "c")
}

func TestDecodeIsIdempotent(t *testing.T) {
	tmpl := fixtureTemplate(t)
	key := "2023|bananas|plátanos|5"
	first := collect(tmpl, key)
	second := collect(tmpl, key)
	assert.Equal(t, first, second)
}

func TestDecodeBucketOutOfRangePanics(t *testing.T) {
	tmpl, err := New([]TemplatePart{BucketPart("c", 10)})
	require.NoError(t, err)
	assert.Panics(t, func() { collect(tmpl, "10") })
}

func TestDecodeMalformedPercentEncodingPanics(t *testing.T) {
	tmpl, err := New([]TemplatePart{TagValue("a")})
	require.NoError(t, err)
	assert.Panics(t, func() { collect(tmpl, "%zz") })
}

func TestDecodeMalformedStoredTemplateZeroBucketsPanics(t *testing.T) {
	// New rejects NumBuckets == 0 (ErrInvalidNumberOfBuckets), so the only
	// way a Template can carry one is a corrupt stored template built via
	// the test-only backdoor constructor (§3, §9 "backdoor constructor").
	tmpl := NewUnvalidatedTemplateForTests([]TemplatePart{BucketPart("c", 0)})
	assert.Panics(t, func() { collect(tmpl, "0") })
}

func TestDecodeContiguityViolationDropsAmbiguousPartialTimestamp(t *testing.T) {
	// "%Y-%d" binds year and day but skips month: a decoded key would be an
	// ambiguous partial timestamp (§4.4's coarser-to-finer contiguity
	// rule), so the tuple must be dropped rather than guessed at.
	tmpl, err := New([]TemplatePart{TimeFormat("%Y-%d")})
	require.NoError(t, err)
	got := collect(tmpl, "2023-17")
	assert.NotContains(t, got, TimeColumnName)
}

func TestRoundTripEncodeDecode(t *testing.T) {
	tmpl := fixtureTemplate(t)
	row := Row{
		Timestamp: time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC),
		Tags: map[string]string{
			"a": "hello|world",
			"b": "",
			"c": "some-tag",
		},
	}
	key := tmpl.Encode(row)
	got := collect(tmpl, key)

	assert.Equal(t, "hello|world", got["a"].Identity)
	assert.Equal(t, ColumnValue{Kind: ColumnIdentity, Identity: ""}, got["b"])
	assert.Equal(t, Bucket("some-tag", 10), got["c"].BucketID)
}
