package runconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// MarshalYAML serializes the resolved document back to YAML with keys in
// sorted order, so output is deterministic and parsing it again yields an
// equivalent mapping.
func (c *Config) MarshalYAML() ([]byte, error) {
	node, err := yamlNode(c.raw)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// MarshalJSON serializes the resolved document as JSON.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.raw)
}

// Hash returns a stable hex digest of the resolved document. Two configs that
// resolve to the same mapping hash identically regardless of key order or
// interpolation spelling.
func (c *Config) Hash() (string, error) {
	// encoding/json sorts map keys, which makes the encoding canonical.
	b, err := json.Marshal(c.raw)
	if err != nil {
		return "", fmt.Errorf("hash run config: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// yamlNode converts a document tree to a yaml.Node with sorted mapping keys.
func yamlNode(v any) (*yaml.Node, error) {
	switch node := v.(type) {
	case map[string]any:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		keys := make([]string, 0, len(node))
		for key := range node {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			keyNode := &yaml.Node{}
			if err := keyNode.Encode(key); err != nil {
				return nil, err
			}
			valNode, err := yamlNode(node[key])
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, keyNode, valNode)
		}
		return out, nil
	case []any:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, child := range node {
			childNode, err := yamlNode(child)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, childNode)
		}
		return out, nil
	default:
		out := &yaml.Node{}
		if err := out.Encode(v); err != nil {
			return nil, err
		}
		return out, nil
	}
}
