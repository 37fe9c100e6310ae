package runconfig

import (
	"fmt"
	"os"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	kyaml "github.com/knadh/koanf/parsers/yaml"
)

// Load reads, interpolates and decodes a run config YAML file. The returned
// config has defaults applied but is not yet validated; call Validate to
// check it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config: %w", err)
	}
	cfg, err := LoadBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes decodes a run config from YAML bytes.
func LoadBytes(b []byte) (*Config, error) {
	doc, err := kyaml.Parser().Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("parse run config: %w", err)
	}
	return fromRaw(doc)
}

func fromRaw(doc map[string]any) (*Config, error) {
	resolved, err := Interpolate(doc)
	if err != nil {
		return nil, err
	}

	var cfg Config
	// Strict decoding: every key in the document must belong to the schema.
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "koanf",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(durationDecodeHook),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(resolved); err != nil {
		return nil, fmt.Errorf("run config does not match schema: %w", err)
	}

	cfg.raw = resolved
	cfg.applyDefaults()
	return &cfg, nil
}

var durationType = reflect.TypeOf(Duration{})

// durationDecodeHook parses duration strings ("2000ba", "1ep") into Duration
// values during decoding. Bare zeros are allowed; any other bare number is
// rejected so a forgotten unit never silently changes meaning.
func durationDecodeHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return ParseDuration(v)
	case int:
		if v == 0 {
			return Duration{Unit: UnitToken}, nil
		}
	case int64:
		if v == 0 {
			return Duration{Unit: UnitToken}, nil
		}
	case float64:
		if v == 0 {
			return Duration{Unit: UnitToken}, nil
		}
	case Duration:
		return v, nil
	}
	return nil, fmt.Errorf("duration %v needs a unit suffix (tok, ba, ep, sp, dur)", data)
}

// has reports whether the original document defined the given dotted key.
// Used to distinguish explicit zero values from absent keys when applying
// defaults.
func (c *Config) has(path string) bool {
	_, ok := getPath(c.raw, path)
	return ok
}
