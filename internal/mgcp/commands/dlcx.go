package commands

import (
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

type dlcxCommand struct {
	deps Deps
	req  *message.Request
}

func dlcxFactory(d Deps) command.Factory {
	return func(req *message.Request) command.Command {
		return &dlcxCommand{deps: d, req: req}
	}
}

func (c *dlcxCommand) Execute() (*command.Result, error) {
	ep, err := resolveOne(c.deps, c.req.EndpointID)
	if err != nil {
		return nil, err
	}

	connID, ok := c.req.Params[message.ParamConnectionID]
	if !ok || connID == "" {
		// No connection id: delete every connection on the endpoint
		// (spec §4.1: "DLCX without I deletes all of the endpoint's
		// connections").
		for _, conn := range ep.Connections() {
			c.deleteConnection(ep, conn.ID, conn.LocalPort)
		}
		return &command.Result{Code: 250}, nil
	}

	conn, ok := ep.Connection(connID)
	if !ok {
		return nil, command.ProtocolError("unknown connection id: " + connID)
	}
	c.deleteConnection(ep, connID, conn.LocalPort)

	return &command.Result{Code: 250}, nil
}

func (c *dlcxCommand) deleteConnection(ep *endpoint.Endpoint, connID string, localPort int) {
	if err := ep.UnregisterConnection(connID); err == nil && localPort != 0 {
		c.deps.Ports.Release(localPort)
	}
}

func (c *dlcxCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}

func (c *dlcxCommand) Reset() {}
