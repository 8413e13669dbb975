package submit

import "github.com/lumenmap/lightwatch/internal/domain"

// pendingState tracks one optimistic write through its small state machine:
// Pending(tempID) → Confirmed(realID) | RolledBack.
type pendingState int

const (
	statePending pendingState = iota
	stateConfirmed
	stateRolledBack
)

// pendingWrite is the optimistic local row added ahead of the store
// round-trip. It is either replaced by the server-confirmed row or removed.
type pendingWrite struct {
	state  EngineState
	tempID string
	phase  pendingState
}

// newPendingWrite adds the temp row to local state and returns its handle.
func newPendingWrite(state EngineState, temp domain.Report) *pendingWrite {
	state.AddReport(temp)
	return &pendingWrite{state: state, tempID: temp.ID}
}

// confirm swaps the temp row for the confirmed one.
func (w *pendingWrite) confirm(r domain.Report) {
	if w.phase != statePending {
		return
	}
	w.state.ReplaceReport(w.tempID, r)
	w.phase = stateConfirmed
}

// rollback removes the temp row, restoring the prior state.
func (w *pendingWrite) rollback() {
	if w.phase != statePending {
		return
	}
	w.state.RemoveReport(w.tempID)
	w.phase = stateRolledBack
}
