package schema

import (
	"encoding/json"
	"strconv"
)

// RequestID is a JSON-RPC id. Runtimes send either numbers or strings.
type RequestID struct {
	Value interface{}
}

func (id *RequestID) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	id.Value = v
	return nil
}

func (id *RequestID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value)
}

func RequestIDFromUint64(value uint64) RequestID {
	return RequestID{Value: value}
}

func (id *RequestID) String() string {
	if id == nil || id.Value == nil {
		return "nil"
	}
	switch v := id.Value.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	bytes, err := json.Marshal(id.Value)
	if err != nil {
		return err.Error()
	}
	return string(bytes)
}

func (id *RequestID) IsEmpty() bool {
	return id == nil || id.Value == nil
}
