package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Field accessors tolerant of the value representations produced by
// in-process construction (int64, bool) and by JSON transports
// (float64, json.Number). Every failure wraps ErrMalformedPayload.

func stringField(p Payload, key string) (string, error) {
	raw, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: missing key %q", ErrMalformedPayload, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: key %q is not a string", ErrMalformedPayload, key)
	}
	return s, nil
}

func boolField(p Payload, key string) (bool, error) {
	raw, ok := p[key]
	if !ok {
		return false, fmt.Errorf("%w: missing key %q", ErrMalformedPayload, key)
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: key %q is not a bool", ErrMalformedPayload, key)
	}
	return b, nil
}

func int64Field(p Payload, key string) (int64, error) {
	raw, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing key %q", ErrMalformedPayload, key)
	}
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: key %q is not an integer: %v", ErrMalformedPayload, key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: key %q is not a number", ErrMalformedPayload, key)
	}
}

func intField(p Payload, key string) (int, error) {
	n, err := int64Field(p, key)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// timeField reads a unix-millisecond timestamp. Returned times are UTC.
func timeField(p Payload, key string) (time.Time, error) {
	ms, err := int64Field(p, key)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func uuidField(p Payload, key string) (uuid.UUID, error) {
	s, err := stringField(p, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: key %q is not a UUID: %v", ErrMalformedPayload, key, err)
	}
	return id, nil
}

// optionalUUIDField returns uuid.Nil when the key is absent or holds an
// empty string. A present, non-empty, unparseable value is still an
// error.
func optionalUUIDField(p Payload, key string) (uuid.UUID, error) {
	raw, ok := p[key]
	if !ok {
		return uuid.Nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: key %q is not a string", ErrMalformedPayload, key)
	}
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: key %q is not a UUID: %v", ErrMalformedPayload, key, err)
	}
	return id, nil
}
