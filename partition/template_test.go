package partition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNoParts(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrNoParts)
}

func TestNewRejectsTooManyParts(t *testing.T) {
	parts := make([]TemplatePart, 9)
	for i := range parts {
		parts[i] = TagValue("a")
	}
	_, err := New(parts)
	require.ErrorIs(t, err, ErrTooManyParts)
}

func TestNewRejectsForbiddenDirective(t *testing.T) {
	_, err := New([]TemplatePart{TimeFormat("%#z")})
	require.ErrorIs(t, err, ErrInvalidStrftime)
}

func TestNewRejectsUppercaseForbiddenVariant(t *testing.T) {
	_, err := New([]TemplatePart{TimeFormat("%#Z")})
	require.ErrorIs(t, err, ErrInvalidStrftime)
}

func TestNewRejectsEmptyStrftime(t *testing.T) {
	_, err := New([]TemplatePart{TimeFormat("")})
	require.ErrorIs(t, err, ErrInvalidStrftime)
}

func TestNewRejectsReservedTagName(t *testing.T) {
	_, err := New([]TemplatePart{TagValue("time")})
	require.ErrorIs(t, err, ErrInvalidTagValue)

	_, err = New([]TemplatePart{TagValue("")})
	require.ErrorIs(t, err, ErrInvalidTagValue)
}

func TestNewRejectsRepeatedName(t *testing.T) {
	_, err := New([]TemplatePart{TagValue("a"), BucketPart("a", 10)})
	require.ErrorIs(t, err, ErrRepeatedTagValue)
}

func TestNewRejectsBadBucketCount(t *testing.T) {
	_, err := New([]TemplatePart{BucketPart("a", 0)})
	require.ErrorIs(t, err, ErrInvalidNumberOfBuckets)

	_, err = New([]TemplatePart{BucketPart("a", 100_000)})
	require.ErrorIs(t, err, ErrInvalidNumberOfBuckets)
}

func TestNewAcceptsValidTemplate(t *testing.T) {
	tmpl, err := New([]TemplatePart{TimeFormat("%Y"), TagValue("a"), TagValue("b"), BucketPart("c", 10)})
	require.NoError(t, err)
	assert.Equal(t, 4, tmpl.Len())
}

func TestDefaultTemplate(t *testing.T) {
	require.Equal(t, 1, Default.Len())
	assert.Equal(t, PartTimeFormat, Default.Parts()[0].Kind)
	assert.Equal(t, "%Y-%m-%d", Default.Parts()[0].Spec)
}

func TestValidationPriorityOrder(t *testing.T) {
	// TooManyParts must win over a per-part InvalidTagValue further down the
	// list, per §4.2's stated priority order.
	parts := make([]TemplatePart, 9)
	for i := range parts {
		parts[i] = TagValue("time")
	}
	_, err := New(parts)
	require.True(t, errors.Is(err, ErrTooManyParts))
	require.False(t, errors.Is(err, ErrInvalidTagValue))
}
