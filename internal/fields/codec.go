package fields

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// Codec converts a column value to and from the bytes that get encrypted.
// Deterministic columns require the encoding to be canonical: equal values
// must encode to equal bytes.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

func String() Codec[string] {
	return Codec[string]{
		Encode: func(v string) ([]byte, error) { return []byte(v), nil },
		Decode: func(b []byte) (string, error) { return string(b), nil },
	}
}

func Bytes() Codec[[]byte] {
	return Codec[[]byte]{
		Encode: func(v []byte) ([]byte, error) { return v, nil },
		Decode: func(b []byte) ([]byte, error) { return b, nil },
	}
}

func Int64() Codec[int64] {
	return Codec[int64]{
		Encode: func(v int64) ([]byte, error) {
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, uint64(v))
			return b, nil
		},
		Decode: func(b []byte) (int64, error) {
			if len(b) != 8 {
				return 0, fmt.Errorf("expected 8 bytes for int64, got %d", len(b))
			}
			return int64(binary.BigEndian.Uint64(b)), nil
		},
	}
}

// Time encodes as nanoseconds since the unix epoch, so equal instants encode
// equally regardless of location.
func Time() Codec[time.Time] {
	return Codec[time.Time]{
		Encode: func(v time.Time) ([]byte, error) {
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, uint64(v.UnixNano()))
			return b, nil
		},
		Decode: func(b []byte) (time.Time, error) {
			if len(b) != 8 {
				return time.Time{}, fmt.Errorf("expected 8 bytes for time, got %d", len(b))
			}
			return time.Unix(0, int64(binary.BigEndian.Uint64(b))).UTC(), nil
		},
	}
}

// JSON encodes with encoding/json. Map keys are marshalled in sorted order,
// which keeps the encoding canonical for deterministic columns.
func JSON[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		Decode: func(b []byte) (T, error) {
			var v T
			err := json.Unmarshal(b, &v)
			return v, err
		},
	}
}
