package commands

import (
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
	"github.com/sebas/mgcpgw/internal/mgcp/sdpadapter"
)

type mdcxCommand struct {
	deps Deps
	req  *message.Request
}

func mdcxFactory(d Deps) command.Factory {
	return func(req *message.Request) command.Command {
		return &mdcxCommand{deps: d, req: req}
	}
}

func (c *mdcxCommand) Execute() (*command.Result, error) {
	ep, err := resolveOne(c.deps, c.req.EndpointID)
	if err != nil {
		return nil, err
	}

	connID, ok := c.req.Params[message.ParamConnectionID]
	if !ok || connID == "" {
		return nil, command.ProtocolError("MDCX requires a connection id (I parameter)")
	}
	conn, ok := ep.Connection(connID)
	if !ok {
		return nil, command.ProtocolError("unknown connection id: " + connID)
	}

	sdp, ok := c.req.Params[message.ParamSDP]
	if !ok || sdp == "" {
		// No remote SDP change requested; echo the existing local SDP.
		return &command.Result{
			Code:   200,
			Params: map[message.ParamType]string{message.ParamSDP: conn.LocalSDP},
		}, nil
	}

	remote, err := sdpadapter.ParseOffer([]byte(sdp))
	if err != nil {
		return nil, command.ProtocolError(err.Error())
	}
	conn.RemoteSDP = sdp
	conn.RemoteAddr = remote.Addr
	conn.RemotePort = remote.Port

	return &command.Result{
		Code:   200,
		Params: map[message.ParamType]string{message.ParamSDP: conn.LocalSDP},
	}, nil
}

func (c *mdcxCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}

func (c *mdcxCommand) Reset() {}
