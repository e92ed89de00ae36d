package natsadapter

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// EncodeEvent serialises an event as a protobuf Struct.
func EncodeEvent(ev domain.Event) ([]byte, error) {
	fields := map[string]any{
		"kind":  string(ev.Kind),
		"scope": ev.Scope,
		"at":    ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.RouteID != "" {
		fields["route_id"] = ev.RouteID
	}
	if len(ev.Detail) > 0 {
		fields["detail"] = ev.Detail
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return proto.Marshal(st)
}

// DecodeEvent is the inverse of EncodeEvent. Numbers in Detail come back as
// float64.
func DecodeEvent(data []byte) (domain.Event, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	m := st.AsMap()

	ev := domain.Event{
		Kind:  domain.EventKind(str(m["kind"])),
		Scope: str(m["scope"]),
	}
	ev.RouteID = str(m["route_id"])
	if at := str(m["at"]); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return domain.Event{}, fmt.Errorf("decode event time: %w", err)
		}
		ev.At = t
	}
	if d, ok := m["detail"].(map[string]any); ok {
		ev.Detail = d
	}
	return ev, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
