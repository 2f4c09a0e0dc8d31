package commands

import (
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
	"github.com/sebas/mgcpgw/internal/mgcp/playcollect"
	"github.com/sebas/mgcpgw/internal/mgcp/signal"
)

type rqntCommand struct {
	deps Deps
	req  *message.Request

	ep      *endpoint.Endpoint
	machine *playcollect.Machine
}

func rqntFactory(d Deps) command.Factory {
	return func(req *message.Request) command.Command {
		return &rqntCommand{deps: d, req: req}
	}
}

func (c *rqntCommand) Execute() (*command.Result, error) {
	ep, err := resolveOne(c.deps, c.req.EndpointID)
	if err != nil {
		return nil, err
	}
	c.ep = ep

	raw, ok := c.req.Params[message.ParamSignalRequests]
	if !ok || raw == "" {
		// A bare RQNT with no signal just acknowledges the requested
		// event/digit-map registration (spec §4.1 "S is optional").
		return &command.Result{Code: 200}, nil
	}

	pkg, symbol, rawParams, err := parseSignalRequest(raw)
	if err != nil {
		return nil, command.ProtocolError(err.Error())
	}
	if pkg != auPackage || symbol != auSymbolPC {
		return nil, command.UnknownExtension("unsupported signal " + pkg + "/" + symbol)
	}

	params, err := playcollect.ParseParameters(rawParams)
	if err != nil {
		return nil, err
	}

	conn, ok := ep.AnyConnection()
	if !ok {
		return nil, command.EndpointNotReady("no connection established for PlayCollect")
	}

	player, detector := c.deps.Media(conn)

	epID := ep.ID()
	var machine *playcollect.Machine
	machine, err = playcollect.NewMachine(params, player, detector, c.deps.Clock, func(o signal.Outcome) {
		ep.DeactivateSignal(auPackage, auSymbolPC)
		ep.Notify(message.Message{Request: buildNotify(epID, auPackage, o.Symbol, o.Code, o.Params)})
	})
	if err != nil {
		return nil, err
	}
	c.machine = machine

	cancel := func() {
		machine.Cancel()
		ep.DeactivateSignal(auPackage, auSymbolPC)
	}
	if _, err := ep.ActivateSignal(auPackage, auSymbolPC, endpoint.TimeOut, cancel); err != nil {
		return nil, err
	}

	go machine.Run()

	return &command.Result{Code: 200}, nil
}

// Rollback cancels the just-started signal so a later failure in the
// surrounding transaction never leaves PlayCollect running unobserved.
func (c *rqntCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	if c.machine != nil {
		c.machine.Cancel()
		c.ep.DeactivateSignal(auPackage, auSymbolPC)
	}
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}

func (c *rqntCommand) Reset() {}
