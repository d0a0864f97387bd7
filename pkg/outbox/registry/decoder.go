package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	"github.com/angelmondragon/vendorops-backend/pkg/outbox/payloads"
)

// ErrNoDecoder is returned for an event type and version nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

type decoderFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps an event type and envelope version to the payload
// struct consumers receive.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]decoderFunc
}

// NewDecoderRegistry returns a registry that knows v1 of every order and
// notification event.
func NewDecoderRegistry() *DecoderRegistry {
	r := &DecoderRegistry{decoders: make(map[decoderKey]decoderFunc)}
	RegisterJSON[payloads.OrderCreatedEvent](r, enums.EventOrderCreated, 1)
	RegisterJSON[payloads.OrderStateChangedEvent](r, enums.EventOrderStateChanged, 1)
	RegisterJSON[payloads.NotificationRequestedEvent](r, enums.EventNotificationRequested, 1)
	return r
}

// RegisterJSON decodes payloads of eventType at version into T.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = func(payload json.RawMessage) (any, error) {
		var decoded T
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	}
}

// Decode runs the decoder registered for eventType at version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s@v%d", ErrNoDecoder, eventType, version)
	}
	return decode(payload)
}

// DecodeAs decodes and asserts the payload type in one step.
func DecodeAs[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int, payload json.RawMessage) (T, error) {
	var zero T
	decoded, err := r.Decode(eventType, version, payload)
	if err != nil {
		return zero, err
	}
	typed, ok := decoded.(T)
	if !ok {
		return zero, fmt.Errorf("decoder for %s@v%d returned %T", eventType, version, decoded)
	}
	return typed, nil
}
