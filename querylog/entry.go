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

// Package querylog implements a bounded ring buffer of query execution
// records, each driven through a strict lifecycle by a scope-bound
// completion token whose early drop is interpreted as cancellation.
package querylog

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueryPhase is the lifecycle state of a QueryLogEntry (§3, §4.6):
// Received -> Planned -> Permit -> {Success, Fail, Cancel}.
type QueryPhase int32

const (
	PhaseReceived QueryPhase = iota
	PhasePlanned
	PhasePermit
	PhaseSuccess
	PhaseFail
	PhaseCancel
)

// String returns the phase's log-line name.
func (p QueryPhase) String() string {
	switch p {
	case PhaseReceived:
		return "received"
	case PhasePlanned:
		return "planned"
	case PhasePermit:
		return "permit"
	case PhaseSuccess:
		return "success"
	case PhaseFail:
		return "fail"
	case PhaseCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// PlanMetrics is the subset of an execution plan node's metrics this log
// consumes: its own elapsed-compute contribution, if any.
type PlanMetrics struct {
	ElapsedCompute    time.Duration
	HasElapsedCompute bool
}

// ExecutionPlan is the external collaborator's plan-tree view (§1's "the log
// only consumes a metrics() and children() view of it"). The log never
// constructs or owns one; it is handed a root node at Planned time.
type ExecutionPlan interface {
	Metrics() PlanMetrics
	Children() []ExecutionPlan
}

// collectComputeDuration walks plan recursively, summing every node's
// ElapsedCompute metric (§4.6's compute_duration aggregation).
func collectComputeDuration(plan ExecutionPlan) (time.Duration, bool) {
	if plan == nil {
		return 0, false
	}
	var total time.Duration
	found := false
	var walk func(ExecutionPlan)
	walk = func(p ExecutionPlan) {
		m := p.Metrics()
		if m.HasElapsedCompute {
			total += m.ElapsedCompute
			found = true
		}
		for _, child := range p.Children() {
			walk(child)
		}
	}
	walk(plan)
	return total, found
}

// QueryLogEntry is one record in the log (§3). Identity fields are set once
// at push time and never change; the remaining fields are updated by
// exactly one QueryCompletionToken holder through atomic operations.
type QueryLogEntry struct {
	ID            uuid.UUID
	NamespaceID   int64
	NamespaceName string
	QueryType     string
	QueryText     string
	TraceID       string // empty string means "absent"
	IssueTime     time.Time

	phase atomic.Int32 // QueryPhase, the SeqCst synchronization point (§4.5, §5)

	planDuration    *AtomicDuration
	permitDuration  *AtomicDuration
	executeDuration *AtomicDuration
	end2endDuration *AtomicDuration
	computeDuration *AtomicDuration

	success atomic.Bool
	running atomic.Bool

	logger  *zap.Logger
	clock   func() time.Time
	metrics *logMetrics

	// lastTransitionAt and plan are touched only by the single token holder
	// currently driving the entry forward (the type-state token linearizes
	// access), so they need no atomic protection of their own.
	lastTransitionAt time.Time
	plan             ExecutionPlan
}

func newQueryLogEntry(logger *zap.Logger, clock func() time.Time, metrics *logMetrics, id uuid.UUID, namespaceID int64, namespaceName, queryType, queryText, traceID string, issueTime time.Time) *QueryLogEntry {
	e := &QueryLogEntry{
		ID:               id,
		NamespaceID:      namespaceID,
		NamespaceName:    namespaceName,
		QueryType:        queryType,
		QueryText:        queryText,
		TraceID:          traceID,
		IssueTime:        issueTime,
		planDuration:     NewAtomicDuration(),
		permitDuration:   NewAtomicDuration(),
		executeDuration:  NewAtomicDuration(),
		end2endDuration:  NewAtomicDuration(),
		computeDuration:  NewAtomicDuration(),
		logger:           logger,
		clock:            clock,
		metrics:          metrics,
		lastTransitionAt: issueTime,
	}
	e.phase.Store(int32(PhaseReceived))
	e.running.Store(true)
	return e
}

// Phase returns the entry's current lifecycle phase (SeqCst load, §5).
func (e *QueryLogEntry) Phase() QueryPhase { return QueryPhase(e.phase.Load()) }

// Running reports whether the entry is still being actively driven by a
// token (false once a terminal phase has been finalized).
func (e *QueryLogEntry) Running() bool { return e.running.Load() }

// Success reports the entry's recorded success flag; meaningful only once
// Phase() is PhaseSuccess or PhaseFail.
func (e *QueryLogEntry) Success() bool { return e.success.Load() }

// PlanDuration, PermitDuration, ExecuteDuration, End2EndDuration, and
// ComputeDuration expose the entry's atomic duration fields (§3); each
// returns ok=false if not yet set.
func (e *QueryLogEntry) PlanDuration() (time.Duration, bool)    { return e.planDuration.Get() }
func (e *QueryLogEntry) PermitDuration() (time.Duration, bool)  { return e.permitDuration.Get() }
func (e *QueryLogEntry) ExecuteDuration() (time.Duration, bool) { return e.executeDuration.Get() }
func (e *QueryLogEntry) End2EndDuration() (time.Duration, bool) { return e.end2endDuration.Get() }
func (e *QueryLogEntry) ComputeDuration() (time.Duration, bool) { return e.computeDuration.Get() }

func (e *QueryLogEntry) setPhase(p QueryPhase) { e.phase.Store(int32(p)) }

// log emits one structured line per phase transition, field order and
// naming mirroring the source's tracing::info! call sites (see
// SPEC_FULL.md's AMBIENT STACK section).
func (e *QueryLogEntry) log(phase QueryPhase) {
	fields := []zap.Field{
		zap.Stringer("query_id", e.ID),
		zap.String("phase", phase.String()),
		zap.Int64("namespace_id", e.NamespaceID),
		zap.String("namespace_name", e.NamespaceName),
		zap.String("query_type", e.QueryType),
	}
	if e.TraceID != "" {
		fields = append(fields, zap.String("trace_id", e.TraceID))
	}
	if d, ok := e.planDuration.Get(); ok {
		fields = append(fields, zap.Duration("plan_duration", d))
	}
	if d, ok := e.permitDuration.Get(); ok {
		fields = append(fields, zap.Duration("permit_duration", d))
	}
	if d, ok := e.executeDuration.Get(); ok {
		fields = append(fields, zap.Duration("execute_duration", d))
	}
	if d, ok := e.end2endDuration.Get(); ok {
		fields = append(fields, zap.Duration("end2end_duration", d))
	}
	if d, ok := e.computeDuration.Get(); ok {
		fields = append(fields, zap.Duration("compute_duration", d))
	}
	e.logger.Info("query log phase transition", fields...)

	if e.metrics == nil {
		return
	}
	switch phase {
	case PhasePlanned:
		if d, ok := e.planDuration.Get(); ok {
			e.metrics.observePhase(phase.String(), d)
		}
	case PhasePermit:
		if d, ok := e.permitDuration.Get(); ok {
			e.metrics.observePhase(phase.String(), d)
		}
	case PhaseSuccess, PhaseFail, PhaseCancel:
		if d, ok := e.end2endDuration.Get(); ok {
			e.metrics.observePhase(phase.String(), d)
		}
	}
}
