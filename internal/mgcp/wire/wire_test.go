package wire

import (
	"reflect"
	"testing"

	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

// TestRequestRoundTrip covers spec §8 "Round-trip laws": parse(serialize(req)) == req.
func TestRequestRoundTrip(t *testing.T) {
	req := &message.Request{
		Verb:          message.RQNT,
		TransactionID: 1234,
		EndpointID:    message.EndpointID{LocalName: "aaln/1", Domain: "gw.example.com"},
		Params: map[message.ParamType]string{
			message.ParamSignalRequests:  "AU/pc(ip=welcome,mn=3,mx=3)",
			message.ParamRequestedEvents: "AU/pc",
		},
	}

	got, err := Parse(SerializeRequest(req))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, req)
	}
}

func TestParseRejectsUnknownVerb(t *testing.T) {
	_, err := Parse([]byte("BOGUS 1 aaln/1@gw.example.com MGCP 1.0\n"))
	if err == nil {
		t.Fatal("expected error for unknown verb")
	}
}

func TestParseRejectsUnknownParameterKey(t *testing.T) {
	_, err := Parse([]byte("RQNT 1 aaln/1@gw.example.com MGCP 1.0\nZZ: bogus\n"))
	if err == nil {
		t.Fatal("expected error for unknown parameter key")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &message.Response{
		TransactionID: 42,
		Code:          200,
		Comment:       "OK",
		Params: map[message.ParamType]string{
			message.ParamConnectionID: "abc123",
		},
	}

	got, err := ParseResponse(Serialize(resp))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, resp)
	}
}
