package api

import (
	"encoding/base64"
	"testing"

	"parley/internal/room"
)

func TestTicketRoundTrip(t *testing.T) {
	ticket := encodeTicket(room.Participant{Name: "Ada", Role: room.RoleHost})
	if ticket == "" {
		t.Fatal("expected a ticket")
	}

	participant, ok := decodeTicket(ticket)
	if !ok {
		t.Fatal("ticket did not decode")
	}
	if participant.Name != "Ada" || participant.Role != room.RoleHost {
		t.Fatalf("unexpected participant: %#v", participant)
	}
}

func TestDecodeTicketRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"not base64":   "%%%",
		"not json":     base64.RawURLEncoding.EncodeToString([]byte("hello")),
		"missing name": base64.RawURLEncoding.EncodeToString([]byte(`{"role":"HOST"}`)),
		"bad role":     base64.RawURLEncoding.EncodeToString([]byte(`{"name":"Ada","role":"ADMIN"}`)),
	}
	for label, raw := range cases {
		if _, ok := decodeTicket(raw); ok {
			t.Fatalf("%s ticket should not decode: %q", label, raw)
		}
	}
}
