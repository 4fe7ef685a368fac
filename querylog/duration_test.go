package querylog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAtomicDurationUnsetByDefault(t *testing.T) {
	d := NewAtomicDuration()
	_, ok := d.Get()
	assert.False(t, ok)
}

func TestAtomicDurationSetAbsolute(t *testing.T) {
	d := NewAtomicDuration()
	d.SetAbsolute(5 * time.Second)
	v, ok := d.Get()
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, v)
}

func TestAtomicDurationSetRelative(t *testing.T) {
	d := NewAtomicDuration()
	origin := time.Unix(0, 0)
	d.SetRelative(zap.NewNop(), origin, origin.Add(3*time.Second))
	v, ok := d.Get()
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, v)
}

func TestAtomicDurationClockRegressionLeavesUnset(t *testing.T) {
	d := NewAtomicDuration()
	origin := time.Unix(10, 0)
	d.SetRelative(zap.NewNop(), origin, origin.Add(-time.Second))
	_, ok := d.Get()
	assert.False(t, ok)
}

func TestAtomicDurationNeverCollapsesToZero(t *testing.T) {
	d := NewAtomicDuration()
	d.SetAbsolute(0)
	v, ok := d.Get()
	assert.True(t, ok, "an explicit zero duration must be distinguishable from unset")
	assert.Equal(t, time.Duration(0), v)
}
