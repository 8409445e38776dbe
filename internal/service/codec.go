package service

import "encoding/json"

// jsonCodec lets connect carry plain Go structs. It replaces connect's
// protobuf JSON codec under the same name, so requests use the
// application/json content type.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
