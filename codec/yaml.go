package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	goserde "github.com/reoring/goserde"
	"gopkg.in/yaml.v3"
)

// YAML returns a YAML encoder. Ordered maps become mapping nodes in field
// order rather than the alphabetical order yaml.Marshal would impose on a
// plain map.
func YAML() Encoder { return yamlEncoder{} }

type yamlEncoder struct{}

func (yamlEncoder) Encode(v any) ([]byte, error) {
	node, err := yamlNode(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func (yamlEncoder) Name() string { return "yaml" }

// yamlNode builds node trees by hand where ordering matters and defers to
// the yaml encoder for plain values.
func yamlNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return yamlNull(), nil
	case *goserde.Map:
		if t == nil {
			return yamlNull(), nil
		}
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var walkErr error
		t.Each(func(k string, mv any) bool {
			vn, err := yamlNode(mv)
			if err != nil {
				walkErr = err
				return false
			}
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				vn,
			)
			return true
		})
		if walkErr != nil {
			return nil, walkErr
		}
		return n, nil
	case []*goserde.Map:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, m := range t {
			vn, err := yamlNode(m)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, vn)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, el := range t {
			vn, err := yamlNode(el)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, vn)
		}
		return n, nil
	case json.Number:
		// json.Number would otherwise render as a quoted string.
		tag := "!!int"
		if strings.ContainsAny(t.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: t.String()}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("codec: yaml encode: %w", err)
	}
	return n, nil
}

func yamlNull() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
