package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EmptyPayloadText is the canonical text of a payload that is absent or cannot be encoded.
const EmptyPayloadText = "{}"

// Event is a timestamped, typed record with an opaque payload (immutable value object).
type Event[T any] struct {
	id        string
	source    Source
	kind      string
	createdAt string
	payload   T
}

// New validates and creates an Event.
// Only the id is checked; timestamp quality is the caller's concern and
// surfaces as ErrInvalidTimestamp when a time comparison needs it.
func New[T any](id string, source Source, kind, createdAt string, payload T) (Event[T], error) {
	if id == "" {
		return Event[T]{}, fmt.Errorf("event ID is required")
	}
	return Event[T]{id: id, source: source, kind: kind, createdAt: createdAt, payload: payload}, nil
}

// Reconstruct creates an Event without validation (storage hydration).
func Reconstruct[T any](id string, source Source, kind, createdAt string, payload T) Event[T] {
	return Event[T]{id: id, source: source, kind: kind, createdAt: createdAt, payload: payload}
}

// ID returns the event identifier.
func (e Event[T]) ID() string { return e.id }

// Source returns the origin tag.
func (e Event[T]) Source() Source { return e.source }

// Kind returns the deployment-defined category.
func (e Event[T]) Kind() string { return e.kind }

// CreatedAt returns the raw ISO-8601 creation timestamp.
func (e Event[T]) CreatedAt() string { return e.createdAt }

// Payload returns the opaque payload.
func (e Event[T]) Payload() T { return e.payload }

// Instant parses CreatedAt to an absolute instant.
func (e Event[T]) Instant() (time.Time, error) {
	return parseField("createdAt", e.createdAt)
}

// CanonicalText returns the lowercase canonical JSON form of the payload.
// Map keys are emitted in sorted order and HTML characters are not escaped,
// so the text is stable across reloads and matches what a user typed.
func (e Event[T]) CanonicalText() string {
	return strings.ToLower(canonicalJSON(e.payload))
}

func canonicalJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return EmptyPayloadText
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	if len(out) == 0 || bytes.Equal(out, []byte("null")) {
		return EmptyPayloadText
	}
	return string(out)
}

type wireEvent[T any] struct {
	ID        string `json:"id"`
	Source    Source `json:"source"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"createdAt"`
	Payload   T      `json:"payload"`
}

// MarshalJSON encodes the event with its wire field names.
func (e Event[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent[T]{
		ID:        e.id,
		Source:    e.source,
		Kind:      e.kind,
		CreatedAt: e.createdAt,
		Payload:   e.payload,
	})
}

// UnmarshalJSON decodes an event without validation.
// Numbers inside untyped payloads decode as json.Number so the canonical
// text keeps their literal digits.
func (e *Event[T]) UnmarshalJSON(data []byte) error {
	var w wireEvent[T]
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	*e = Reconstruct(w.ID, w.Source, w.Kind, w.CreatedAt, w.Payload)
	return nil
}
