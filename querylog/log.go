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
	"sync"
	"sync/atomic"
	"time"

	roaring "github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a QueryLog at construction.
type Option func(*QueryLog)

// WithClock overrides the time source (tests inject a deterministic one).
func WithClock(clock func() time.Time) Option {
	return func(l *QueryLog) { l.clock = clock }
}

// WithIDGenerator overrides the 128-bit id generator (defaults to uuid.New).
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(l *QueryLog) { l.idGen = gen }
}

// WithLogger overrides the structured logger (defaults to zap.NewNop()).
func WithLogger(logger *zap.Logger) Option {
	return func(l *QueryLog) { l.logger = logger }
}

// WithRegisterer wires the log's counters/histogram into reg (§ DOMAIN STACK).
// Metrics collection is a no-op if never set.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *QueryLog) { l.metrics = newLogMetrics(reg) }
}

// QueryLog is a bounded FIFO ring buffer of QueryLogEntry (§4.7). Pushing
// beyond maxSize evicts the oldest entry regardless of its running state; a
// token driving an evicted entry keeps working (consumers of the token see
// the terminal state; consumers of the log's snapshot do not, since the
// entry is gone from the buffer).
type QueryLog struct {
	maxSize int

	clock  func() time.Time
	idGen  func() uuid.UUID
	logger *zap.Logger

	metrics *logMetrics

	mu        sync.Mutex
	entries   []*QueryLogEntry
	sequences []uint32 // parallel to entries: the push sequence number of each retained entry
	nextSeq   uint32

	evicted    atomic.Uint64
	evictedIDs *roaring.Bitmap // guarded by mu; tracks evicted push-sequence numbers
}

// New constructs a QueryLog with the given capacity. maxSize == 0 puts the
// log in "tokens-only" mode: pushed entries are never retained, but the
// returned token still drives its (unstored) entry through the normal
// lifecycle (§4.7).
func New(maxSize int, opts ...Option) *QueryLog {
	l := &QueryLog{
		maxSize:    maxSize,
		clock:      time.Now,
		idGen:      uuid.New,
		logger:     zap.NewNop(),
		evictedIDs: roaring.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Push allocates a new entry in phase Received and returns a token driving
// it. namespaceID/namespaceName/queryType/queryText/traceID populate the
// entry's immutable identity fields (§3); traceID == "" means "absent".
func (l *QueryLog) Push(namespaceID int64, namespaceName, queryType, queryText, traceID string) *ReceivedToken {
	now := l.clock()
	id := l.idGen()
	e := newQueryLogEntry(l.logger, l.clock, l.metrics, id, namespaceID, namespaceName, queryType, queryText, traceID, now)
	e.log(PhaseReceived)
	l.metrics.incPushed()

	l.mu.Lock()
	seq := l.nextSeq
	l.nextSeq++
	if l.maxSize > 0 {
		l.entries = append(l.entries, e)
		l.sequences = append(l.sequences, seq)
		for len(l.entries) > l.maxSize {
			l.entries = l.entries[1:]
			evictedSeq := l.sequences[0]
			l.sequences = l.sequences[1:]
			l.evictedIDs.Add(evictedSeq)
			l.evicted.Add(1)
			l.metrics.incEvicted()
		}
	}
	l.mu.Unlock()

	return newReceivedToken(e)
}

// Snapshot is a cloned view of the log's current entries plus bookkeeping
// (§4.7's snapshot()).
type Snapshot struct {
	Entries []*QueryLogEntry
	MaxSize int
	Evicted uint64
}

// OldestIssueTime returns the issue time of the oldest retained entry, or
// the zero time if the snapshot is empty (supplemented per SPEC_FULL.md).
func (s Snapshot) OldestIssueTime() time.Time {
	if len(s.Entries) == 0 {
		return time.Time{}
	}
	return s.Entries[0].IssueTime
}

// NewestIssueTime returns the issue time of the most-recently-pushed
// retained entry, or the zero time if the snapshot is empty.
func (s Snapshot) NewestIssueTime() time.Time {
	if len(s.Entries) == 0 {
		return time.Time{}
	}
	return s.Entries[len(s.Entries)-1].IssueTime
}

// Snapshot returns a cloned view of the current entries, the configured
// capacity, and the cumulative evicted count (§4.7).
func (l *QueryLog) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]*QueryLogEntry, len(l.entries))
	copy(entries, l.entries)
	return Snapshot{Entries: entries, MaxSize: l.maxSize, Evicted: l.evicted.Load()}
}

// EvictedIDs returns the push-sequence numbers of every entry evicted so
// far, as a sorted slice. Supplemented per SPEC_FULL.md to let a caller
// (e.g. a catalog-cache peer reconciling state across replicas) identify
// exactly which pushes fell out of this node's window, backed by a roaring
// bitmap since the sequence space is unbounded but membership is sparse
// relative to it.
func (l *QueryLog) EvictedIDs() []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]uint32, 0, l.evictedIDs.GetCardinality())
	it := l.evictedIDs.Iterator()
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out
}
