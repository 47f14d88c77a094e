package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nordtolk/booking-backend/pkg/enums"
)

// ErrDecoderNotFound marks event type and version pairs no decoder was
// registered for. Consumers ack and skip such events instead of
// retrying them.
var ErrDecoderNotFound = errors.New("decoder not registered")

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps booking event types and payload versions to the
// decoder producing their typed payload. Registration happens at
// consumer startup, lookups happen on every received message.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]decoderFunc)}
}

// Register stores a decoder for the given event type and payload version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the registered decoder against the raw envelope payload.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s@v%d", ErrDecoderNotFound, eventType, version)
	}
	return decoder(payload)
}
