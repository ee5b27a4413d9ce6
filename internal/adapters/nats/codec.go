package natsadapter

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// ContentType marks session event messages on the wire.
const ContentType = "application/x-protobuf; message=google.protobuf.Struct"

// EncodeSessionEvent serialises ev as a protobuf Struct. The timestamp is
// carried as seconds and nanos so it survives the round trip exactly.
func EncodeSessionEvent(ev *domain.SessionEvent) ([]byte, error) {
	ts := timestamppb.New(ev.At)
	payload, err := structpb.NewStruct(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(ev.SessionID),
		"kind":       structpb.NewStringValue(string(ev.Kind)),
		"at_seconds": structpb.NewNumberValue(float64(ts.GetSeconds())),
		"at_nanos":   structpb.NewNumberValue(float64(ts.GetNanos())),
		"payload":    structpb.NewStructValue(payload),
	}}
	return proto.Marshal(msg)
}

// DecodeSessionEvent is the inverse of EncodeSessionEvent.
func DecodeSessionEvent(data []byte) (*domain.SessionEvent, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode session event: %w", err)
	}
	f := msg.GetFields()

	ts := &timestamppb.Timestamp{
		Seconds: int64(f["at_seconds"].GetNumberValue()),
		Nanos:   int32(f["at_nanos"].GetNumberValue()),
	}
	if err := ts.CheckValid(); err != nil {
		return nil, fmt.Errorf("decode session event: %w", err)
	}

	ev := &domain.SessionEvent{
		SessionID: f["session_id"].GetStringValue(),
		Kind:      domain.EventKind(f["kind"].GetStringValue()),
		At:        ts.AsTime(),
	}
	if p := f["payload"].GetStructValue(); p != nil && len(p.GetFields()) > 0 {
		ev.Payload = p.AsMap()
	}
	return ev, nil
}
