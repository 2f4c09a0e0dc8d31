package commands

import (
	"strings"

	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

type auepCommand struct {
	deps Deps
	req  *message.Request
}

func auepFactory(d Deps) command.Factory {
	return func(req *message.Request) command.Command {
		return &auepCommand{deps: d, req: req}
	}
}

// Execute reports whether the endpoint exists and which connections it
// currently carries (spec §4.1 "AuditEndpoint").
func (c *auepCommand) Execute() (*command.Result, error) {
	ep, err := resolveOne(c.deps, c.req.EndpointID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	for _, conn := range ep.Connections() {
		ids = append(ids, conn.ID)
	}

	return &command.Result{
		Code: 200,
		Params: map[message.ParamType]string{
			message.ParamConnectionID: strings.Join(ids, ","),
		},
	}, nil
}

func (c *auepCommand) Rollback(tid, code int, msg string) (*command.Result, error) {
	return &command.Result{TransactionID: tid, Code: code, Message: msg}, nil
}

func (c *auepCommand) Reset() {}
