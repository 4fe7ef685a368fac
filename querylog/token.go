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
	"runtime"
	"sync/atomic"
)

// entryCell is the option-swap primitive §4.8's design notes call for:
// "a simple option-swap on the entry reference suffices" to guarantee a
// token's finalization runs exactly once whether it happens via an explicit
// terminal method or via the garbage collector finalizing an abandoned
// token. take returns the wrapped entry and clears the cell; a second call
// (from either path) observes nil and is a no-op.
type entryCell struct {
	ptr atomic.Pointer[QueryLogEntry]
}

func newEntryCell(e *QueryLogEntry) *entryCell {
	c := &entryCell{}
	c.ptr.Store(e)
	return c
}

func (c *entryCell) take() *QueryLogEntry {
	return c.ptr.Swap(nil)
}

// ReceivedToken drives an entry in QueryPhase Received. Obtained from
// QueryLog.Push. Go has no deterministic Drop: if a ReceivedToken (or any
// later-phase token derived from it) is simply discarded without calling a
// terminal method, a runtime.SetFinalizer backstop eventually marks the
// entry Cancel — but only once the garbage collector happens to run, which
// carries none of Rust's immediate, deterministic-scope guarantee. Prefer
// calling Planned/Fail explicitly; treat the finalizer purely as a safety
// net against forgotten tokens, not a timing guarantee.
type ReceivedToken struct {
	cell *entryCell
}

func newReceivedToken(e *QueryLogEntry) *ReceivedToken {
	t := &ReceivedToken{cell: newEntryCell(e)}
	runtime.SetFinalizer(t, func(t *ReceivedToken) { finalizeDrop(t.cell) })
	return t
}

// Planned transitions Received -> Planned, recording plan_duration and the
// execution plan that will later supply compute-time metrics (§4.6).
func (t *ReceivedToken) Planned(plan ExecutionPlan) *PlannedToken {
	e := t.cell.take()
	if e == nil {
		panic("querylog: token already consumed")
	}
	runtime.SetFinalizer(t, nil)

	now := e.clock()
	e.planDuration.SetRelative(e.logger, e.lastTransitionAt, now)
	e.lastTransitionAt = now
	e.plan = plan
	e.setPhase(PhasePlanned)
	e.log(PhasePlanned)

	next := &PlannedToken{cell: newEntryCell(e)}
	runtime.SetFinalizer(next, func(n *PlannedToken) { finalizeDrop(n.cell) })
	return next
}

// Fail transitions Received -> Fail: planning failed before a plan was ever
// produced (§4.6's Received -> Fail row).
func (t *ReceivedToken) Fail() {
	e := t.cell.take()
	if e == nil {
		panic("querylog: token already consumed")
	}
	runtime.SetFinalizer(t, nil)

	now := e.clock()
	e.planDuration.SetRelative(e.logger, e.lastTransitionAt, now)
	e.lastTransitionAt = now
	e.setPhase(PhaseFail)
	finalizeTail(e)
}

// PlannedToken drives an entry in QueryPhase Planned.
type PlannedToken struct {
	cell *entryCell
}

// Permit transitions Planned -> Permit, recording permit_duration (§4.6).
func (t *PlannedToken) Permit() *PermitToken {
	e := t.cell.take()
	if e == nil {
		panic("querylog: token already consumed")
	}
	runtime.SetFinalizer(t, nil)

	now := e.clock()
	e.permitDuration.SetRelative(e.logger, e.lastTransitionAt, now)
	e.lastTransitionAt = now
	e.setPhase(PhasePermit)
	e.log(PhasePermit)

	next := &PermitToken{cell: newEntryCell(e)}
	runtime.SetFinalizer(next, func(n *PermitToken) { finalizeDrop(n.cell) })
	return next
}

// PermitToken drives an entry in QueryPhase Permit, the only phase from
// which Success and Fail are reachable.
type PermitToken struct {
	cell *entryCell
}

// Success transitions Permit -> Success: records execute_duration, the
// success flag, and the full compute_duration collected from the plan tree
// (§4.6's Permit -> Success row).
func (t *PermitToken) Success() {
	e := t.cell.take()
	if e == nil {
		panic("querylog: token already consumed")
	}
	runtime.SetFinalizer(t, nil)

	now := e.clock()
	e.executeDuration.SetRelative(e.logger, e.lastTransitionAt, now)
	e.lastTransitionAt = now
	e.success.Store(true)
	if d, ok := collectComputeDuration(e.plan); ok {
		e.computeDuration.SetAbsolute(d)
	}
	e.setPhase(PhaseSuccess)
	finalizeTail(e)
}

// Fail transitions Permit -> Fail: records execute_duration only, no
// compute time is collected (§4.6's Permit -> Fail row).
func (t *PermitToken) Fail() {
	e := t.cell.take()
	if e == nil {
		panic("querylog: token already consumed")
	}
	runtime.SetFinalizer(t, nil)

	now := e.clock()
	e.executeDuration.SetRelative(e.logger, e.lastTransitionAt, now)
	e.lastTransitionAt = now
	e.setPhase(PhaseFail)
	finalizeTail(e)
}

// finalizeDrop is the finalizer backstop invoked when a token is garbage
// collected without an explicit terminal call. It is also what an abandoned
// ReceivedToken/PlannedToken/PermitToken effectively triggers: cancellation.
func finalizeDrop(cell *entryCell) {
	e := cell.take()
	if e == nil {
		// An explicit terminal method (or a transition moving the entry
		// forward to the next phase's token) already took the entry;
		// nothing left to finalize.
		return
	}
	markCancelled(e)
	finalizeTail(e)
}

// markCancelled marks e Cancel and, if the token had already been granted a
// permit, collects whatever partial compute time the plan tree reports so
// far (§4.8: "If the drop occurred after permit() but before success/fail,
// partial compute time is collected from the plan tree; otherwise compute
// time stays unset").
func markCancelled(e *QueryLogEntry) {
	e.setPhase(PhaseCancel)
	if _, hasPermit := e.permitDuration.Get(); hasPermit {
		if d, ok := collectComputeDuration(e.plan); ok {
			e.computeDuration.SetAbsolute(d)
		}
	}
}

// finalizeTail performs the unconditional finalization every terminal path
// (explicit Success/Fail, or a dropped token's implicit Cancel) shares:
// end2end_duration, running=false, and a final log line (§4.6, §4.8).
func finalizeTail(e *QueryLogEntry) {
	now := e.clock()
	e.end2endDuration.SetRelative(e.logger, e.IssueTime, now)
	e.running.Store(false)
	e.log(e.Phase())
}
