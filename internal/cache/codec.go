package cache

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Serializer converts values to and from the opaque payload stored in an entry
// file. Decode must only ever produce plain data; it must not construct
// arbitrary types chosen by the payload.
type Serializer interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, dst any) error
}

// JSONSerializer stores values as JSON. Decoding into *any yields only nil,
// bool, string, int64, float64, []any and map[string]any; decoding into a
// typed destination is bounded by the type the caller chose.
type JSONSerializer struct{}

func (JSONSerializer) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return data, nil
}

func (JSONSerializer) Decode(data []byte, dst any) error {
	if !json.Valid(data) {
		return errors.New("payload is not valid JSON")
	}
	ptr, generic := dst.(*any)
	if !generic {
		return json.Unmarshal(data, dst)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*ptr = plainData(raw)
	return nil
}

type jsonNumber interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

// plainData 把 json.Number 收敛为 int64/float64，并递归处理容器。
func plainData(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = plainData(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = plainData(item)
		}
		return t
	case jsonNumber:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}
