package kv

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Codec encodes the settings document of a File backend.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Codecs supported by File.
var (
	TOML Codec = tomlCodec{}
	YAML Codec = yamlCodec{}
)

// CodecByName returns the codec called name ("toml" or "yaml").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "toml":
		return TOML, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return nil, fmt.Errorf("kv: unknown codec %q", name)
	}
}

type tomlCodec struct{}

func (tomlCodec) Name() string                       { return "toml" }
func (tomlCodec) Marshal(v any) ([]byte, error)      { return toml.Marshal(v) }
func (tomlCodec) Unmarshal(data []byte, v any) error { return toml.Unmarshal(data, v) }

type yamlCodec struct{}

func (yamlCodec) Name() string                       { return "yaml" }
func (yamlCodec) Marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// CodecError represents an error while decoding a settings file.
type CodecError struct {
	Path  string
	Codec string
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: invalid %s settings: %v", e.Path, e.Codec, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
