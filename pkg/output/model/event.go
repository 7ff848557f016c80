package model

import "encoding/json"

// Event is one observation record in its flat-mapping representation,
// keyed by dot-segmented field names (e.g. "time.source", "source.ip").
// Values are scalars, nested mappings, or lists.
type Event map[string]any

// Decode parses a JSON message frame into an Event.
func Decode(payload []byte) (Event, error) {
	event := Event{}

	err := json.Unmarshal(payload, &event)
	if err != nil {
		return nil, err
	}

	return event, nil
}

// Clone returns a copy of the event whose top level can be modified
// without touching the original. Nested values are shared; transforms
// that rewrite nested structure build new maps rather than mutate.
func (e Event) Clone() Event {
	clone := make(Event, len(e))

	for k, v := range e {
		clone[k] = v
	}

	return clone
}
