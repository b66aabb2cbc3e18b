package codegen

import (
	"fmt"

	"github.com/mark3labs/swagger2client/internal/spec"
)

// Variant is one member of a closed string enumeration.
type Variant struct {
	// Name is the Go constant identifier.
	Name string
	// Value is the literal exactly as declared.
	Value string
}

// EmitEnum derives the constants of a string enumeration in declaration
// order. Repeated literals are declared once. Literals deriving the same
// identifier get a numeric suffix; the literal itself is never altered.
func EmitEnum(typeName string, n *spec.Node) ([]Variant, error) {
	if n == nil || n.Kind != spec.KindEnum {
		return nil, fmt.Errorf("%s: not a string enumeration", typeName)
	}
	names := newUniqueNames()
	seen := make(map[string]bool, len(n.Enum))
	out := make([]Variant, 0, len(n.Enum))
	for _, lit := range n.Enum {
		if seen[lit] {
			continue
		}
		seen[lit] = true
		suffix := pascalCase(lit)
		if suffix == "" {
			suffix = "Empty"
		}
		out = append(out, Variant{
			Name:  names.take(avoidRuntime(escapeKeyword(typeName + suffix))),
			Value: lit,
		})
	}
	return out, nil
}
