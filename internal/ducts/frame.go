package ducts

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// decodeFrame unpacks one [rid, eid, payload] wire frame. A nil payload is
// valid: some acknowledgement replies carry no body.
func decodeFrame(data []byte) (rid int64, eid int64, payload map[string]any, err error) {
	var frame []any
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		return 0, 0, nil, fmt.Errorf("decode duct frame: %w", err)
	}
	if len(frame) != 3 {
		return 0, 0, nil, fmt.Errorf("duct frame has %d elements, want 3", len(frame))
	}

	rid, err = asInt64(frame[0])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("duct frame request id: %w", err)
	}
	eid, err = asInt64(frame[1])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("duct frame event id: %w", err)
	}
	payload, err = asStringMap(frame[2])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("duct frame payload: %w", err)
	}

	return rid, eid, payload, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case uint:
		return int64(n), nil
	}
	return 0, fmt.Errorf("value %T is not an integer", v)
}

func asStringMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for key, value := range m {
			s, ok := key.(string)
			if !ok {
				return nil, errors.New("map key is not a string")
			}
			out[s] = value
		}
		return out, nil
	}
	return nil, fmt.Errorf("value %T is not a map", v)
}
