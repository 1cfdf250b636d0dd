package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedBody is returned when a payload is neither a list nor an
// object carrying one.
var ErrMalformedBody = errors.New("malformed device list")

// ClientListKeys are the envelope keys accepted by the dashboard.
var ClientListKeys = []string{"devices", "results", "value"}

// UnwrapList returns the elements of a device list payload. It accepts a bare
// JSON array or an object holding the array under the first matching key.
// An object with none of the keys yields an empty list.
func UnwrapList(body []byte, keys ...string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedBody)
	}

	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return list, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		for _, key := range keys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var list []json.RawMessage
			if err := json.Unmarshal(raw, &list); err != nil {
				// Not an array under this key; try the next one.
				continue
			}
			return list, nil
		}
		return []json.RawMessage{}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", ErrMalformedBody, trimmed[0])
	}
}

// RawRecords decodes a device list payload into generic records.
// Elements that are not JSON objects are dropped.
func RawRecords(body []byte, keys ...string) ([]map[string]any, error) {
	items, err := UnwrapList(body, keys...)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		var rec map[string]any
		if err := json.Unmarshal(item, &rec); err != nil || rec == nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
