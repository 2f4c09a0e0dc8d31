// Package endpoint implements the endpoint facade and manager commands
// use to manipulate connections and signals (spec §4.4), and resolves
// the wildcard endpoint identifiers of spec §6.
package endpoint

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sebas/mgcpgw/internal/mgcp/bus"
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

// SignalHandle is the live state of an activated signal, enough for
// the facade to enforce the idempotency/exclusivity rules of §4.4
// without depending on any concrete signal type; the signal's owner
// supplies Cancel.
type SignalHandle struct {
	Package   string
	Symbol    string
	Kind      SignalKind
	Executing bool
	Cancel    func()
}

// SignalKind mirrors spec §3 Signal.SignalType.
type SignalKind int

const (
	Brief SignalKind = iota
	TimeOut
	OnOff
)

// Connection represents one registered RTP connection on an endpoint.
type Connection struct {
	ID         string
	LocalSDP   string
	LocalPort  int
	RemoteSDP  string
	RemoteAddr string
	RemotePort int
}

// Endpoint is one addressable media termination.
type Endpoint struct {
	mu          sync.Mutex
	id          message.EndpointID
	bus         *bus.Bus
	connections map[string]*Connection
	signals     map[string]*SignalHandle // keyed by "package/symbol"
}

func newEndpoint(id message.EndpointID) *Endpoint {
	return &Endpoint{
		id:          id,
		bus:         bus.New(),
		connections: make(map[string]*Connection),
		signals:     make(map[string]*SignalHandle),
	}
}

// ID returns the endpoint's address.
func (e *Endpoint) ID() message.EndpointID { return e.id }

// Observe registers o on this endpoint's bus, so NTFY requests the
// endpoint generates fan out OUT to the caller (spec §4.4: "implements
// the subject interface").
func (e *Endpoint) Observe(o bus.Observer) bus.Subscription {
	return e.bus.Observe(o)
}

// RegisterConnection creates a Connection and returns its id.
func (e *Endpoint) RegisterConnection(localSDP string) *Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := &Connection{ID: uuid.NewString(), LocalSDP: localSDP}
	e.connections[c.ID] = c
	return c
}

// UnregisterConnection removes a Connection by id.
func (e *Endpoint) UnregisterConnection(connID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.connections[connID]; !ok {
		return fmt.Errorf("connection %s not found", connID)
	}
	delete(e.connections, connID)
	return nil
}

// Connection looks up a registered connection by id.
func (e *Endpoint) Connection(connID string) (*Connection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.connections[connID]
	return c, ok
}

// AnyConnection returns an arbitrary registered connection. Signals
// like PlayCollect play through whichever connection is carrying this
// endpoint's media; an endpoint with more than one simultaneous
// connection is out of scope (spec §1 Non-goals: "conferencing").
func (e *Endpoint) AnyConnection() (*Connection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.connections {
		return c, true
	}
	return nil, false
}

// Connections returns every connection currently registered on this
// endpoint, for audit (AUEP/AUCX) reporting.
func (e *Endpoint) Connections() []*Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Connection, 0, len(e.connections))
	for _, c := range e.connections {
		out = append(out, c)
	}
	return out
}

func signalKey(pkg, symbol string) string { return pkg + "/" + symbol }

// ActivateSignal registers a signal as running on the endpoint.
// ON_OFF signals are idempotent by (package, symbol): re-activating
// one that is already running is a no-op success. Re-activating a
// TIME_OUT signal while one is executing fails with CommandError{528}
// (spec §4.4).
func (e *Endpoint) ActivateSignal(pkg, symbol string, kind SignalKind, cancel func()) (*SignalHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := signalKey(pkg, symbol)
	if existing, ok := e.signals[key]; ok && existing.Executing {
		if kind == OnOff {
			return existing, nil
		}
		if kind == TimeOut {
			return nil, command.IllegalState(fmt.Sprintf("signal %s already executing on endpoint %s", key, e.id))
		}
	}

	h := &SignalHandle{Package: pkg, Symbol: symbol, Kind: kind, Executing: true, Cancel: cancel}
	e.signals[key] = h
	return h, nil
}

// DeactivateSignal marks a signal as no longer executing, releasing
// the exclusivity lock for TIME_OUT signals.
func (e *Endpoint) DeactivateSignal(pkg, symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := signalKey(pkg, symbol)
	if h, ok := e.signals[key]; ok {
		h.Executing = false
	}
}

// ActiveSignal reports whether (package, symbol) is currently
// executing.
func (e *Endpoint) ActiveSignal(pkg, symbol string) (*SignalHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.signals[signalKey(pkg, symbol)]
	return h, ok && h.Executing
}

// Notify fans out msg OUT through this endpoint's bus — the
// mechanism NTFY requests generated by signals use to reach the
// mediator/external observers (spec §4.4).
func (e *Endpoint) Notify(msg message.Message) {
	e.bus.Notify(msg, message.Outgoing)
	slog.Debug("[Endpoint] notified", "endpoint", e.id, "message", msg)
}
