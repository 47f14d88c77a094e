package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nordtolk/booking-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventSessionEnded, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"session_time":"1:30:00"}`)
	output, err := reg.Decode(enums.EventSessionEnded, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["session_time"] != "1:30:00" {
		t.Fatalf("unexpected output %+v", output)
	}
}

func TestDecoderRegistryUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventJobCreated, 1, func(payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	_, err := reg.Decode(enums.EventJobCreated, 2, json.RawMessage(`{}`))
	if !errors.Is(err, ErrDecoderNotFound) {
		t.Fatalf("expected ErrDecoderNotFound, got %v", err)
	}
}
