package mediaengine

import "testing"

func TestDecodeDTMFEventRoundTrip(t *testing.T) {
	payload := []byte{5, 0x80 | 10, 0x06, 0x40} // event 5, end-of-event, volume 10, duration 0x0640
	evt, err := decodeDTMFEvent(payload)
	if err != nil {
		t.Fatalf("decodeDTMFEvent: %v", err)
	}
	if evt.Event != 5 || !evt.EndOfEvent || evt.Duration != 0x0640 {
		t.Fatalf("got %+v, want event=5 end=true duration=0x0640", evt)
	}
}

func TestDecodeDTMFEventTooShort(t *testing.T) {
	if _, err := decodeDTMFEvent([]byte{1, 2}); err == nil {
		t.Fatal("expected an error for a short payload")
	}
}

func TestEventToRune(t *testing.T) {
	cases := []struct {
		event uint8
		want  rune
	}{
		{0, '0'}, {9, '9'}, {dtmfStar, '*'}, {dtmfPound, '#'}, {dtmfA, 'A'}, {dtmfD, 'D'},
	}
	for _, c := range cases {
		got, ok := eventToRune(c.event)
		if !ok || got != c.want {
			t.Errorf("eventToRune(%d) = %q, %v; want %q, true", c.event, got, ok, c.want)
		}
	}

	if _, ok := eventToRune(200); ok {
		t.Error("expected an unknown event code to be rejected")
	}
}
