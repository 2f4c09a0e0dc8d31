// Package transaction models the per-request transaction lifecycle
// the mediator tracks (spec §3 MgcpTransaction, §4.3).
package transaction

import (
	"fmt"
	"time"

	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

// State is the lifecycle of a transaction: IDLE -> IN_PROGRESS ->
// (COMPLETED | FAILED) -> evicted.
type State int

const (
	Idle State = iota
	InProgress
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case InProgress:
		return "IN_PROGRESS"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// IsTerminal reports whether the state ends the transaction's open
// lifetime.
func (s State) IsTerminal() bool { return s == Completed || s == Failed }

// Transaction tracks one in-flight request/response correlation.
type Transaction struct {
	ID        int
	Request   *message.Request
	State     State
	StartedAt time.Time
	// Response is populated once a terminal response has been
	// produced, supporting duplicate-request re-emission (spec §4.3).
	Response *message.Response
}

// New creates a transaction in IN_PROGRESS for a freshly observed
// request (spec §3: "created on first sight of a transaction id").
func New(req *message.Request, startedAt time.Time) *Transaction {
	return &Transaction{
		ID:        req.TransactionID,
		Request:   req,
		State:     InProgress,
		StartedAt: startedAt,
	}
}

// Complete transitions the transaction to COMPLETED (terminal
// response observed) and records the response for duplicate
// suppression.
func (t *Transaction) Complete(resp *message.Response) {
	t.State = Completed
	t.Response = resp
}

// Fail transitions the transaction to FAILED, synthesizing a response
// with the given code (used for the T_transaction timeout path, spec
// §4.3, code 406).
func (t *Transaction) Fail(code int, comment string) {
	t.State = Failed
	t.Response = &message.Response{
		TransactionID: t.ID,
		Code:          code,
		Comment:       comment,
	}
}

// Expired reports whether the transaction has been open longer than
// timeout, measured from now.
func (t *Transaction) Expired(now time.Time, timeout time.Duration) bool {
	return !t.State.IsTerminal() && now.Sub(t.StartedAt) >= timeout
}
