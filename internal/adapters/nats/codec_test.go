package natsadapter_test

import (
	"testing"
	"time"

	natsadapter "github.com/propertypulse/propertypulse/internal/adapters/nats"
	"github.com/propertypulse/propertypulse/internal/core/domain"
)

func TestSessionEventCodec(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	in := &domain.SessionEvent{
		SessionID: "abc",
		Kind:      domain.EventSelectionChanged,
		At:        at,
		Payload:   map[string]any{"action": "add", "selected": 2, "latitude": "40.0"},
	}

	data, err := natsadapter.EncodeSessionEvent(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := natsadapter.DecodeSessionEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.SessionID != "abc" || out.Kind != domain.EventSelectionChanged {
		t.Errorf("unexpected header fields %+v", out)
	}
	if !out.At.Equal(at) {
		t.Errorf("expected %v, got %v", at, out.At)
	}
	if out.Payload["action"] != "add" || out.Payload["selected"] != float64(2) || out.Payload["latitude"] != "40.0" {
		t.Errorf("unexpected payload %v", out.Payload)
	}
}

func TestSessionEventCodec_NilPayload(t *testing.T) {
	data, err := natsadapter.EncodeSessionEvent(&domain.SessionEvent{SessionID: "x", Kind: domain.EventSessionCreated, At: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := natsadapter.DecodeSessionEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Payload != nil {
		t.Errorf("expected no payload, got %v", out.Payload)
	}
}

func TestSessionSubject(t *testing.T) {
	if got := natsadapter.SessionSubject("s1", domain.EventDatasetLoaded); got != "propertypulse.session.s1.dataset.loaded" {
		t.Errorf("unexpected subject %q", got)
	}
}
