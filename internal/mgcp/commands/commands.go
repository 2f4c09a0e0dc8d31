// Package commands implements the concrete MGCP verb handlers
// (CRCX/MDCX/DLCX/RQNT/AUEP/AUCX) against the command.Command contract,
// wiring endpoint resolution, connection/port management, SDP
// negotiation, and PlayCollect signal activation together (spec §4.1,
// §4.2).
package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
	"github.com/sebas/mgcpgw/internal/mgcp/playcollect"
	"github.com/sebas/mgcpgw/internal/mgcp/portpool"
)

// MediaFactory builds the Player/DtmfDetector pair a signal uses to
// drive RTP playback and DTMF detection on one connection. The
// concrete implementation lives in package mediaengine; tests supply a
// fake.
type MediaFactory func(conn *endpoint.Connection) (playcollect.Player, playcollect.DtmfDetector)

// Deps bundles the collaborators every verb factory closes over.
type Deps struct {
	Endpoints     *endpoint.Manager
	Ports         *portpool.Pool
	Media         MediaFactory
	Clock         playcollect.Clock
	AdvertiseAddr string
}

// Register wires every supported verb's factory into provider.
func Register(provider *command.Provider, d Deps) {
	provider.Register(message.CRCX, crcxFactory(d))
	provider.Register(message.MDCX, mdcxFactory(d))
	provider.Register(message.DLCX, dlcxFactory(d))
	provider.Register(message.RQNT, rqntFactory(d))
	provider.Register(message.AUEP, auepFactory(d))
	provider.Register(message.AUCX, aucxFactory(d))
}

// resolveOne resolves a request's endpoint id to exactly one Endpoint,
// allocating a fresh one for "$" (spec §6).
func resolveOne(d Deps, id message.EndpointID) (*endpoint.Endpoint, error) {
	eps, err := d.Endpoints.Resolve(id)
	if err != nil {
		return nil, err
	}
	if len(eps) != 1 {
		return nil, command.ProtocolError("command requires exactly one endpoint, resolved " + strconv.Itoa(len(eps)))
	}
	return eps[0], nil
}

// parseSignalRequest parses one MGCP signal request of the form
// "PKG/symbol(key=val,key=val)" — the parenthesized parameter list is
// optional and, when present, becomes the raw parameter map handed to
// the signal's own parser (e.g. playcollect.ParseParameters).
func parseSignalRequest(raw string) (pkg, symbol string, params map[string]string, err error) {
	raw = strings.TrimSpace(raw)
	body := raw
	paramStr := ""
	if i := strings.IndexByte(raw, '('); i >= 0 {
		if !strings.HasSuffix(raw, ")") {
			return "", "", nil, fmt.Errorf("malformed signal request: %q", raw)
		}
		body = raw[:i]
		paramStr = raw[i+1 : len(raw)-1]
	}

	parts := strings.SplitN(body, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", nil, fmt.Errorf("malformed signal request %q: want PKG/symbol", raw)
	}
	pkg, symbol = parts[0], parts[1]

	params = map[string]string{}
	if paramStr != "" {
		for _, kv := range strings.Split(paramStr, ",") {
			kv = strings.TrimSpace(kv)
			if kv == "" {
				continue
			}
			eq := strings.IndexByte(kv, '=')
			if eq < 0 {
				return "", "", nil, fmt.Errorf("malformed signal parameter %q", kv)
			}
			params[strings.TrimSpace(kv[:eq])] = strings.TrimSpace(kv[eq+1:])
		}
	}
	return pkg, symbol, params, nil
}

var notifyTransactionID atomic.Int64

// buildNotify renders a completed signal's outcome as an outbound NTFY
// request. ObservedEvents carries the composite
// "package/symbol(code,key=val,...)" form spec §6 specifies, with
// outParams rendered in sorted key order for determinism.
func buildNotify(epID message.EndpointID, pkg, symbol string, code int, outParams map[string]string) *message.Request {
	keys := make([]string, 0, len(outParams))
	for k := range outParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(pkg)
	b.WriteByte('/')
	b.WriteString(symbol)
	b.WriteByte('(')
	b.WriteString(strconv.Itoa(code))
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(outParams[k])
	}
	b.WriteByte(')')

	return &message.Request{
		Verb:          message.NTFY,
		TransactionID: int(notifyTransactionID.Add(1)),
		EndpointID:    epID,
		Params: map[message.ParamType]string{
			message.ParamObservedEvents: b.String(),
		},
	}
}

const (
	auPackage  = "AU"
	auSymbolPC = "pc"
)
