package commands

import (
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
	"github.com/sebas/mgcpgw/internal/mgcp/sdpadapter"
)

type crcxCommand struct {
	deps Deps
	req  *message.Request

	ep      *endpoint.Endpoint
	conn    *endpoint.Connection
	rtpPort int
}

func crcxFactory(d Deps) command.Factory {
	return func(req *message.Request) command.Command {
		return &crcxCommand{deps: d, req: req}
	}
}

func (c *crcxCommand) Execute() (*command.Result, error) {
	ep, err := resolveOne(c.deps, c.req.EndpointID)
	if err != nil {
		return nil, err
	}
	c.ep = ep

	rtpPort, _, err := c.deps.Ports.Allocate()
	if err != nil {
		return nil, command.NoResourcesAvailable(err.Error())
	}
	c.rtpPort = rtpPort

	codec := sdpadapter.PayloadPCMU
	var remote sdpadapter.RemoteMedia
	if sdp, ok := c.req.Params[message.ParamSDP]; ok && sdp != "" {
		remote, err = sdpadapter.ParseOffer([]byte(sdp))
		if err != nil {
			c.deps.Ports.Release(rtpPort)
			return nil, command.ProtocolError(err.Error())
		}
		codec = remote.Codec
	}

	answer, err := sdpadapter.BuildAnswer(sdpadapter.Offer{
		SessionID:   uint64(c.req.TransactionID),
		ServerAddr:  c.deps.AdvertiseAddr,
		ServerPort:  rtpPort,
		Codec:       codec,
		DtmfPayload: sdpadapter.PayloadTelephoneEvent,
	})
	if err != nil {
		c.deps.Ports.Release(rtpPort)
		return nil, command.ProtocolError(err.Error())
	}

	conn := ep.RegisterConnection(string(answer))
	conn.LocalPort = rtpPort
	conn.RemoteAddr = remote.Addr
	conn.RemotePort = remote.Port
	if sdp, ok := c.req.Params[message.ParamSDP]; ok {
		conn.RemoteSDP = sdp
	}
	c.conn = conn

	return &command.Result{
		Code: 200,
		Params: map[message.ParamType]string{
			message.ParamConnectionID: conn.ID,
			message.ParamSDP:          string(answer),
		},
	}, nil
}

// Rollback releases the port reservation a failed Execute leaves
// behind; the connection itself is only registered once Execute fully
// succeeds, so there is nothing else to unwind.
func (c *crcxCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	if c.rtpPort != 0 && c.conn == nil {
		c.deps.Ports.Release(c.rtpPort)
	}
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}

func (c *crcxCommand) Reset() {}
