// Package mediator implements the transactional request mediator: it
// resolves each incoming request's endpoint, dispatches it through the
// command provider, and suppresses duplicate retransmissions by
// replaying the last response from a bounded recent-transaction buffer
// (spec §2 Mediator).
package mediator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sebas/mgcpgw/internal/mgcp/bus"
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
	"github.com/sebas/mgcpgw/internal/mgcp/transaction"
)

// Mediator is the single entry point a transport adapter calls with
// each decoded incoming request.
type Mediator struct {
	endpoints *endpoint.Manager
	provider  *command.Provider
	bus       *bus.Bus
	recent    *transaction.RecentBuffer
	timeout   time.Duration

	mu   sync.Mutex
	open map[int]*transaction.Transaction
}

// New builds a Mediator. recentCapacity bounds how many recently
// completed transactions are retained for duplicate suppression;
// timeout is T_transaction (spec §4.3, default 30s): how long an
// in-flight transaction is honored before it fails with code 406 and
// is evicted.
func New(endpoints *endpoint.Manager, provider *command.Provider, b *bus.Bus, recentCapacity int, timeout time.Duration) *Mediator {
	return &Mediator{
		endpoints: endpoints,
		provider:  provider,
		bus:       b,
		recent:    transaction.NewRecentBuffer(recentCapacity),
		timeout:   timeout,
		open:      make(map[int]*transaction.Transaction),
	}
}

// Handle processes one incoming request and returns the response to
// send back on the transport, or nil if the request is a duplicate of
// a still in-flight transaction (dropped per spec §4.3: "otherwise
// drops the duplicate"). It never panics: command execution panics
// are converted into a 500 response by command.Call. Dispatch runs on
// its own goroutine so a slow command cannot block unrelated
// transactions; if no terminal response lands within the configured
// T_transaction, the transaction fails with code 406 and is evicted
// (spec §4.3 state machine).
func (m *Mediator) Handle(req *message.Request) *message.Response {
	m.bus.Notify(message.Message{Request: req}, message.Incoming)

	m.mu.Lock()
	if _, inFlight := m.open[req.TransactionID]; inFlight {
		m.mu.Unlock()
		slog.Debug("[Mediator] duplicate of in-flight transaction, dropped", "tx", req.TransactionID)
		return nil
	}
	if tx, ok := m.recent.Get(req.TransactionID); ok && tx.State.IsTerminal() {
		m.mu.Unlock()
		slog.Debug("[Mediator] duplicate transaction, replaying response", "tx", req.TransactionID)
		return tx.Response
	}
	tx := transaction.New(req, time.Now())
	m.open[req.TransactionID] = tx
	m.mu.Unlock()

	resultCh := make(chan *message.Response, 1)
	go func() { resultCh <- m.dispatch(req) }()

	var resp *message.Response
	var timedOut bool
	select {
	case resp = <-resultCh:
	case <-time.After(m.timeout):
		timedOut = true
		resp = &message.Response{TransactionID: req.TransactionID, Code: 406, Comment: "transaction timeout"}
	}

	m.mu.Lock()
	delete(m.open, req.TransactionID)
	if timedOut {
		tx.Fail(406, resp.Comment)
	} else {
		tx.Complete(resp)
	}
	m.recent.Put(tx)
	m.mu.Unlock()

	m.bus.Notify(message.Message{Response: resp}, message.Outgoing)
	return resp
}

func (m *Mediator) dispatch(req *message.Request) *message.Response {
	if _, err := m.endpoints.Resolve(req.EndpointID); err != nil {
		return errorResponse(req, err)
	}

	cmd, err := m.provider.Provide(req)
	if err != nil {
		return errorResponse(req, err)
	}
	result := command.Call(req.TransactionID, cmd)

	return &message.Response{
		TransactionID: req.TransactionID,
		Code:          result.Code,
		Comment:       result.Message,
		Params:        result.Params,
	}
}

// PendingTimeout returns the configured T_transaction (spec §4.3).
func (m *Mediator) PendingTimeout() time.Duration {
	return m.timeout
}

func errorResponse(req *message.Request, err error) *message.Response {
	if ce, ok := err.(*command.Error); ok {
		return &message.Response{TransactionID: req.TransactionID, Code: ce.Code, Comment: ce.Message}
	}
	return &message.Response{TransactionID: req.TransactionID, Code: 500, Comment: err.Error()}
}
