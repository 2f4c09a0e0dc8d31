package command

import (
	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

// Factory builds the Command for one inbound request. Registered per
// Verb in a Provider; the mediator never switches on verb strings
// itself.
type Factory func(req *message.Request) Command

// Provider resolves a Verb to a Factory, mirroring
// dialplan.ActionRegistry's role in the teacher but keyed by the
// closed Verb enum rather than a string.
type Provider struct {
	factories map[message.Verb]Factory
}

// NewProvider builds a Provider from an initial verb/factory mapping.
func NewProvider(factories map[message.Verb]Factory) *Provider {
	p := &Provider{factories: make(map[message.Verb]Factory, len(factories))}
	for v, f := range factories {
		p.factories[v] = f
	}
	return p
}

// Register adds or replaces the factory for a verb.
func (p *Provider) Register(v message.Verb, f Factory) {
	p.factories[v] = f
}

// Provide resolves the Command for a request. The verb was already
// validated as a member of the closed enum by message.ParseVerb
// before the Request was constructed, so a miss here means the verb
// is recognized by the wire grammar but has no registered handler —
// still an UnknownExtension per spec §7.
func (p *Provider) Provide(req *message.Request) (Command, error) {
	f, ok := p.factories[req.Verb]
	if !ok {
		return nil, UnknownExtension("no command registered for verb " + req.Verb.String())
	}
	return f(req), nil
}
