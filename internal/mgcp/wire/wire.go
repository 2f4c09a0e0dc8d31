// Package wire implements the minimal text-line MGCP codec this
// gateway needs to exercise the mediator end to end. spec.md treats
// "the MGCP wire parser" as an external collaborator (§1 Out of
// scope); this package is the concrete stand-in that gives the rest
// of the system bytes to mediate, not a full MGCP ABNF implementation
// (§13 of SPEC_FULL.md).
//
// Request wire form:
//
//	VERB TXID ENDPOINT@DOMAIN MGCP 1.0
//	K: value
//	K: value
//
// Response wire form:
//
//	CODE TXID comment text
//	K: value
//	K: value
package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

const protocolVersion = "MGCP 1.0"

// Parse decodes one MGCP request from its wire representation.
func Parse(data []byte) (*message.Request, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty request")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 3 {
		return nil, fmt.Errorf("malformed request line: %q", scanner.Text())
	}

	verb, ok := message.ParseVerb(fields[0])
	if !ok {
		return nil, fmt.Errorf("unknown verb: %q", fields[0])
	}

	txID, err := strconv.Atoi(fields[1])
	if err != nil || txID <= 0 {
		return nil, fmt.Errorf("malformed transaction id: %q", fields[1])
	}

	epID, err := message.ParseEndpointID(fields[2])
	if err != nil {
		return nil, err
	}

	params, err := parseParams(scanner)
	if err != nil {
		return nil, err
	}

	return &message.Request{
		Verb:          verb,
		TransactionID: txID,
		EndpointID:    epID,
		Params:        params,
	}, nil
}

// ParseResponse decodes one MGCP response from its wire
// representation, the inverse of Serialize. The gateway's receive
// loop does not call it: inbound datagrams go through Parse only.
func ParseResponse(data []byte) (*message.Response, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty response")
	}
	fields := strings.SplitN(scanner.Text(), " ", 3)
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed response line: %q", scanner.Text())
	}

	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("malformed response code: %q", fields[0])
	}
	txID, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("malformed transaction id: %q", fields[1])
	}
	comment := ""
	if len(fields) == 3 {
		comment = fields[2]
	}

	params, err := parseParams(scanner)
	if err != nil {
		return nil, err
	}

	return &message.Response{
		TransactionID: txID,
		Code:          code,
		Comment:       comment,
		Params:        params,
	}, nil
}

func parseParams(scanner *bufio.Scanner) (map[message.ParamType]string, error) {
	params := make(map[message.ParamType]string)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed parameter line: %q", line)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		pt, ok := message.ParamFromKey(key)
		if !ok {
			return nil, fmt.Errorf("unknown parameter key: %q", key)
		}
		params[pt] = val
	}
	return params, scanner.Err()
}

// Serialize encodes resp to its wire representation.
func Serialize(resp *message.Response) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %d", resp.Code, resp.TransactionID)
	if resp.Comment != "" {
		fmt.Fprintf(&b, " %s", resp.Comment)
	}
	b.WriteByte('\n')
	writeParams(&b, resp.Params)
	return b.Bytes()
}

// SerializeRequest encodes req to its wire representation — used to
// emit the NTFY requests a signal's completion generates.
func SerializeRequest(req *message.Request) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %d %s %s\n", req.Verb, req.TransactionID, req.EndpointID, protocolVersion)
	writeParams(&b, req.Params)
	return b.Bytes()
}

func writeParams(b *bytes.Buffer, params map[message.ParamType]string) {
	for pt, val := range params {
		key := pt.Key()
		if key == "" {
			continue
		}
		fmt.Fprintf(b, "%s: %s\n", key, val)
	}
}
