// Package command implements the uniform execute/rollback/reset
// contract every MGCP verb handler follows (spec §4.2), plus a verb
// keyed provider registry (spec §9 "dynamic command dispatch").
package command

import (
	"fmt"

	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

// Error is the typed failure a Command.Execute or Command.Rollback
// raises. It always carries an MGCP response code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mgcp error %d: %s", e.Code, e.Message)
}

// Error taxonomy, spec §7.
func UnknownExtension(msg string) *Error    { return &Error{518, msg} }
func UnknownParameter(msg string) *Error    { return &Error{538, msg} }
func EndpointUnknown(msg string) *Error     { return &Error{500, msg} }
func EndpointNotReady(msg string) *Error    { return &Error{501, msg} }
func NoResourcesAvailable(msg string) *Error { return &Error{403, msg} }
func TransientFailure(msg string) *Error    { return &Error{406, msg} }
func ProtocolError(msg string) *Error       { return &Error{510, msg} }
func IllegalState(msg string) *Error        { return &Error{528, msg} }

// Result is the outcome of a Call; never nil (spec §3 Invariant,
// §4.2).
type Result struct {
	TransactionID int
	Code          int
	Message       string
	Params        map[message.ParamType]string
}

// Command is the uniform contract every verb handler implements.
// Exactly one of Execute or Rollback produces the returned Result;
// Reset always runs on every exit path (spec §3 MgcpCommand
// invariant).
type Command interface {
	// Execute performs the command. A non-nil *Error triggers
	// Rollback; any other non-nil error is wrapped as
	// *Error{Code: 500} before Rollback runs.
	Execute() (*Result, error)

	// Rollback produces the result for a failed Execute. It must not
	// itself fail; if it does, Call synthesizes a {Code: 500} result.
	Rollback(transactionID int, code int, message string) (*Result, error)

	// Reset releases any resources acquired during Execute/Rollback.
	// Always invoked exactly once per Call, regardless of outcome.
	Reset()
}

// Call runs the protocol described in spec §4.2. This is the "thin
// wrapper" the design notes call for in place of an
// AbstractMgcpCommand base type: composition over inheritance, three
// pure operations plus one enforced call order.
func Call(transactionID int, c Command) *Result {
	defer c.Reset()

	result, err := safeExecute(c)
	if err == nil {
		return result
	}

	cmdErr, ok := err.(*Error)
	if !ok {
		cmdErr = &Error{Code: 500, Message: err.Error()}
	}

	rbResult, rbErr := safeRollback(c, transactionID, cmdErr.Code, cmdErr.Message)
	if rbErr != nil {
		return &Result{
			TransactionID: transactionID,
			Code:          500,
			Message:       rbErr.Error(),
		}
	}
	return rbResult
}

func safeExecute(c Command) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return c.Execute()
}

func safeRollback(c Command, transactionID, code int, message string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rollback panicked: %v", r)
		}
	}()
	return c.Rollback(transactionID, code, message)
}
