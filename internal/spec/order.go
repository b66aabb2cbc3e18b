package spec

import (
	"gopkg.in/yaml.v3"
)

// propertyOrder maps a named schema to its property names in document order.
type propertyOrder map[string][]string

// readPropertyOrder walks the raw document and records the declaration order
// of the properties of every named schema. JSON input parses as YAML, so one
// walk serves both encodings. version selects components.schemas (3) or
// definitions (2). A document that fails to parse yields an empty index.
func readPropertyOrder(raw []byte, version int) propertyOrder {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil || len(root.Content) == 0 {
		return propertyOrder{}
	}
	var schemas *yaml.Node
	if version == 2 {
		schemas = mappingValue(root.Content[0], "definitions")
	} else {
		schemas = mappingValue(mappingValue(root.Content[0], "components"), "schemas")
	}
	if schemas == nil || schemas.Kind != yaml.MappingNode {
		return propertyOrder{}
	}

	out := make(propertyOrder, len(schemas.Content)/2)
	for i := 0; i+1 < len(schemas.Content); i += 2 {
		props := mappingValue(schemas.Content[i+1], "properties")
		if props == nil || props.Kind != yaml.MappingNode {
			continue
		}
		names := make([]string, 0, len(props.Content)/2)
		for j := 0; j+1 < len(props.Content); j += 2 {
			names = append(names, props.Content[j].Value)
		}
		out[schemas.Content[i].Value] = names
	}
	return out
}

// mappingValue returns the value node stored under key, or nil.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
