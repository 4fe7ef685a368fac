// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package querylog

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// unsetDuration is the sentinel stored in AtomicDuration to mean "not yet
// set", distinct from a zero-length duration (§4.5, §9). Never collapse
// unset to 0.
const unsetDuration int64 = -1

// AtomicDuration is a single machine word holding a duration in
// nanoseconds, with unsetDuration meaning "unset". All loads/stores use
// Relaxed ordering; callers rely on a separate SeqCst phase field as the
// synchronization point that tells them which durations are meaningful to
// read (§4.5, §5).
type AtomicDuration struct {
	nanos atomic.Int64
}

// NewAtomicDuration returns an AtomicDuration in the unset state.
func NewAtomicDuration() *AtomicDuration {
	d := &AtomicDuration{}
	d.nanos.Store(unsetDuration)
	return d
}

// Get returns the stored duration and ok=true, or ok=false if unset.
func (d *AtomicDuration) Get() (time.Duration, bool) {
	n := d.nanos.Load()
	if n == unsetDuration {
		return 0, false
	}
	return time.Duration(n), true
}

// SetRelative stores now-origin. If now precedes origin (a monotonicity
// violation, e.g. a clock adjustment), the value is left unchanged and a
// warning is logged rather than storing a negative duration (§4.5, §7).
func (d *AtomicDuration) SetRelative(logger *zap.Logger, origin, now time.Time) {
	delta := now.Sub(origin)
	if delta < 0 {
		logger.Warn("querylog: clock regression observed, leaving duration unset",
			zap.Time("origin", origin), zap.Time("now", now))
		return
	}
	d.SetAbsolute(delta)
}

// SetAbsolute stores d directly.
func (d *AtomicDuration) SetAbsolute(v time.Duration) {
	d.nanos.Store(int64(v))
}
