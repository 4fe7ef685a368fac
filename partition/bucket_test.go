package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestIcebergHashFixture(t *testing.T) {
	require.Equal(t, uint32(1210000089), iceberg32Hash("iceberg"))
}

func TestBucketFixtures(t *testing.T) {
	cases := []struct {
		value      string
		numBuckets uint32
		want       uint32
	}{
		{"abcdefg", 5, 4},
		{"abc", 128, 122},
		{"测试", 12, 8},
		{"", 16, 0},
		{"bananas", 10, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Bucket(c.value, c.numBuckets), "bucket(%q,%d)", c.value, c.numBuckets)
	}
}

func TestBucketZeroBucketsPanics(t *testing.T) {
	assert.Panics(t, func() { Bucket("x", 0) })
}

func TestBucketPropertyInRange(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		value := rapid.String().Draw(tt, "value")
		numBuckets := rapid.Uint32Range(1, 99_999).Draw(tt, "numBuckets")
		id := Bucket(value, numBuckets)
		assert.Less(t, id, numBuckets)
		assert.Equal(t, id, Bucket(value, numBuckets), "deterministic")
	})
}
