package endpoint

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sebas/mgcpgw/internal/mgcp/bus"
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

// Manager resolves endpoint identifiers to Endpoint values, including
// the wildcard forms of spec §6: "*" (all matching endpoints) and "$"
// (mint a fresh endpoint). The minted id is not echoed in the MGCP
// response; responses carry no endpoint id.
type Manager struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint // keyed by "localName@domain"
	domain    string                // domain used when minting "$" allocations
	observers []bus.Observer        // subscribed onto every endpoint, present and future
}

// NewManager creates an empty endpoint manager for the given domain.
func NewManager(domain string) *Manager {
	return &Manager{
		endpoints: make(map[string]*Endpoint),
		domain:    domain,
	}
}

// Observe subscribes o onto every endpoint this manager already holds,
// and onto every endpoint created afterward — the gateway's transport
// layer uses this to catch the NTFY requests signals generate on
// dynamically allocated ("$") endpoints without knowing their ids in
// advance.
func (m *Manager) Observe(o bus.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
	for _, ep := range m.endpoints {
		ep.Observe(o)
	}
}

func (m *Manager) newEndpointLocked(id message.EndpointID) *Endpoint {
	ep := newEndpoint(id)
	for _, o := range m.observers {
		ep.Observe(o)
	}
	return ep
}

// Register pre-provisions an endpoint (e.g. a physical port the
// gateway was configured with). Idempotent.
func (m *Manager) Register(id message.EndpointID) *Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := id.String()
	if ep, ok := m.endpoints[key]; ok {
		return ep
	}
	ep := m.newEndpointLocked(id)
	m.endpoints[key] = ep
	return ep
}

// Resolve looks up the endpoint(s) a request targets. A concrete
// local name resolves to exactly one endpoint (error if unknown); "*"
// resolves to every registered endpoint in this domain; "$" allocates
// a brand new endpoint and returns its freshly minted id alongside it.
func (m *Manager) Resolve(id message.EndpointID) ([]*Endpoint, error) {
	switch {
	case id.IsWildcardAny():
		ep := m.allocate()
		return []*Endpoint{ep}, nil
	case id.IsWildcardAll():
		m.mu.Lock()
		defer m.mu.Unlock()
		all := make([]*Endpoint, 0, len(m.endpoints))
		for _, ep := range m.endpoints {
			if ep.id.Domain == id.Domain {
				all = append(all, ep)
			}
		}
		return all, nil
	default:
		m.mu.Lock()
		ep, ok := m.endpoints[id.String()]
		m.mu.Unlock()
		if !ok {
			return nil, command.EndpointUnknown("no such endpoint: " + id.String())
		}
		return []*Endpoint{ep}, nil
	}
}

// allocate mints a fresh endpoint identifier for a "$" request.
func (m *Manager) allocate() *Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := message.EndpointID{LocalName: "aaln/" + uuid.NewString(), Domain: m.domain}
	ep := m.newEndpointLocked(id)
	m.endpoints[id.String()] = ep
	return ep
}
