package domain

import (
	"sort"
	"time"
)

// WorkingConsensusThreshold is the number of consecutive working signals
// since the cycle boundary that marks a light resolved without an
// administrator fix.
const WorkingConsensusThreshold = 3

// LightCycle is the replayed lifecycle state of one light identity.
type LightCycle struct {
	// Boundary is the timestamp of the last effective fix. Zero when the
	// light has never been fixed or a reopen cleared the boundary.
	Boundary time.Time

	// OpenReports are the outage reports belonging to the current open cycle,
	// in replay order.
	OpenReports []Report

	// WorkingSignals counts working acknowledgments (report rows of type
	// "working" plus action-log "working" entries) since the boundary.
	WorkingSignals int

	// ResolvedByConsensus is set when a streak of WorkingConsensusThreshold
	// consecutive working signals, unbroken by any outage report, stands at
	// the end of the replay.
	ResolvedByConsensus bool
}

// CycleBoundary replays fix/reopen actions in timestamp order and returns
// the resulting boundary. The fixed-cache entry participates as a synthetic
// fix event at its timestamp, which makes the result the max of the explicit
// fix timestamps and the cached one — and lets a later reopen retroactively
// clear both, so the action log wins on divergence.
func CycleBoundary(actions []LightAction, lastFixed time.Time) time.Time {
	type boundaryEvent struct {
		ts    time.Time
		reset bool
	}

	events := make([]boundaryEvent, 0, len(actions)+1)
	if !lastFixed.IsZero() {
		events = append(events, boundaryEvent{ts: lastFixed})
	}
	for _, a := range actions {
		switch a.Action {
		case ActionFix:
			events = append(events, boundaryEvent{ts: a.Timestamp})
		case ActionReopen:
			events = append(events, boundaryEvent{ts: a.Timestamp, reset: true})
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].ts.Before(events[j].ts) })

	var boundary time.Time
	for _, ev := range events {
		if ev.reset {
			boundary = time.Time{}
		} else if ev.ts.After(boundary) {
			boundary = ev.ts
		}
	}
	return boundary
}

// TrackCycle folds the merged report/action history of one light identity
// into its current cycle state. reports and actions must all belong to the
// light (for a community light, to any of its member light ids); order does
// not matter, the fold sorts internally.
//
// An outage report is an open-cycle member only if its timestamp is strictly
// after the boundary, or unconditionally when the light has never been
// fixed. The working-consensus rule is a single forward scan with a streak
// counter that any interleaved outage report resets to zero.
func TrackCycle(reports []Report, actions []LightAction, lastFixed time.Time) LightCycle {
	boundary := CycleBoundary(actions, lastFixed)

	type cycleEvent struct {
		ts      time.Time
		working bool
		report  *Report
	}

	var events []cycleEvent
	for i := range reports {
		r := &reports[i]
		if !inOpenCycle(r.Timestamp, boundary) {
			continue
		}
		events = append(events, cycleEvent{ts: r.Timestamp, working: !r.IsOutage(), report: r})
	}
	for _, a := range actions {
		if a.Action != ActionWorking || !inOpenCycle(a.Timestamp, boundary) {
			continue
		}
		events = append(events, cycleEvent{ts: a.Timestamp, working: true})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].ts.Before(events[j].ts) })

	cycle := LightCycle{Boundary: boundary}
	streak := 0
	for _, ev := range events {
		if ev.working {
			streak++
			cycle.WorkingSignals++
			continue
		}
		streak = 0
		cycle.OpenReports = append(cycle.OpenReports, *ev.report)
	}
	cycle.ResolvedByConsensus = streak >= WorkingConsensusThreshold

	return cycle
}

func inOpenCycle(ts time.Time, boundary time.Time) bool {
	return boundary.IsZero() || ts.After(boundary)
}
