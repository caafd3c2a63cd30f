// Package workflows models the approval document state machine. A document is
// either a draft, pending at one position of its approver chain, or terminal.
package workflows

import (
	"fmt"
	"strconv"
	"strings"
)

// DocState is the workflow state of a document. Pending states are generated
// from the approver index, so chains of any length are representable.
type DocState string

const (
	StateTemporary DocState = "TEMPORARY"
	StateComplete  DocState = "COMPLETE"
	StateDeny      DocState = "DENY"
)

const pendingPrefix = "PROCESS_"

// PendingState returns the state for a document awaiting the decision of the
// approver at the given zero-based chain index. Index 0 maps to PROCESS_1.
func PendingState(index int) DocState {
	return DocState(fmt.Sprintf("%s%d", pendingPrefix, index+1))
}

// PendingIndex parses a pending state back into its zero-based approver index.
// The second return value is false for draft and terminal states.
func PendingIndex(s DocState) (int, bool) {
	raw, ok := strings.CutPrefix(string(s), pendingPrefix)
	if !ok {
		return 0, false
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, false
	}
	return k - 1, true
}

// Terminal reports whether no further transitions are permitted.
func (s DocState) Terminal() bool {
	return s == StateComplete || s == StateDeny
}

// Pending reports whether the document is awaiting an approver decision.
func (s DocState) Pending() bool {
	_, ok := PendingIndex(s)
	return ok
}

// CanTransition checks whether a state transition is allowed. Pending states
// advance one position at a time or jump to a terminal state; drafts and
// terminal states never transition.
func CanTransition(from, to DocState) bool {
	idx, ok := PendingIndex(from)
	if !ok {
		return false
	}
	if to.Terminal() {
		return true
	}
	next, ok := PendingIndex(to)
	return ok && next == idx+1
}
