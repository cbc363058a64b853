package persistence

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec turns a collection envelope into bytes and back
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Extension() string
}

// JSONCodec encodes snapshots as indented JSON
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Extension() string { return "json" }

// YAMLCodec encodes snapshots as YAML documents
type YAMLCodec struct{}

func (YAMLCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func (YAMLCodec) Extension() string { return "yaml" }

// CodecFor returns the codec registered under format
func CodecFor(format string) (Codec, error) {
	switch format {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported storage format %q", format)
	}
}
