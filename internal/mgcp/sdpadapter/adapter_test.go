package sdpadapter

import (
	"strings"
	"testing"
)

func TestBuildAnswerIncludesCodecAndDtmf(t *testing.T) {
	body, err := BuildAnswer(Offer{
		SessionID:   1,
		ServerAddr:  "203.0.113.5",
		ServerPort:  4000,
		Codec:       PayloadPCMU,
		DtmfPayload: PayloadTelephoneEvent,
	})
	if err != nil {
		t.Fatalf("BuildAnswer: %v", err)
	}
	s := string(body)
	if !strings.Contains(s, "m=audio 4000 RTP/AVP 0 101") {
		t.Errorf("missing expected media line: %s", s)
	}
	if !strings.Contains(s, "a=rtpmap:101 telephone-event/8000") {
		t.Errorf("missing telephone-event rtpmap: %s", s)
	}
}

func TestParseOfferReadsAddressPortAndPCMA(t *testing.T) {
	body, err := BuildAnswer(Offer{
		SessionID:  1,
		ServerAddr: "198.51.100.9",
		ServerPort: 5000,
		Codec:      PayloadPCMA,
	})
	if err != nil {
		t.Fatalf("BuildAnswer: %v", err)
	}

	rm, err := ParseOffer(body)
	if err != nil {
		t.Fatalf("ParseOffer: %v", err)
	}
	if rm.Addr != "198.51.100.9" || rm.Port != 5000 {
		t.Errorf("got addr=%s port=%d, want 198.51.100.9:5000", rm.Addr, rm.Port)
	}
	if rm.Codec != PayloadPCMA {
		t.Errorf("codec = %s, want %s", rm.Codec, PayloadPCMA)
	}
}

func TestParseOfferRejectsUnsupportedCodec(t *testing.T) {
	_, err := ParseOffer([]byte(
		"v=0\r\no=- 1 1 IN IP4 10.0.0.1\r\ns=-\r\nc=IN IP4 10.0.0.1\r\nt=0 0\r\nm=audio 6000 RTP/AVP 99\r\n"))
	if err == nil {
		t.Fatal("expected error for unsupported codec offer")
	}
}
