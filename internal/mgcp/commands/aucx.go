package commands

import (
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

type aucxCommand struct {
	deps Deps
	req  *message.Request
}

func aucxFactory(d Deps) command.Factory {
	return func(req *message.Request) command.Command {
		return &aucxCommand{deps: d, req: req}
	}
}

// Execute reports the negotiated SDP of a specific connection (spec
// §4.1 "AuditConnection").
func (c *aucxCommand) Execute() (*command.Result, error) {
	ep, err := resolveOne(c.deps, c.req.EndpointID)
	if err != nil {
		return nil, err
	}

	connID, ok := c.req.Params[message.ParamConnectionID]
	if !ok || connID == "" {
		return nil, command.ProtocolError("AUCX requires a connection id (I parameter)")
	}
	conn, ok := ep.Connection(connID)
	if !ok {
		return nil, command.ProtocolError("unknown connection id: " + connID)
	}

	return &command.Result{
		Code: 200,
		Params: map[message.ParamType]string{
			message.ParamSDP: conn.LocalSDP,
		},
	}, nil
}

func (c *aucxCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}

func (c *aucxCommand) Reset() {}
