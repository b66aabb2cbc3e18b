package codegen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mark3labs/swagger2client/internal/spec"
)

// Field is one member of a generated struct.
type Field struct {
	// WireName is the property name exactly as it appears on the wire.
	WireName string
	// LocalName is the Go field identifier.
	LocalName string
	Type      TypeExpr
	Required  bool
	Doc       string
}

// Tag returns the struct tag of f without backquotes, or "" when the
// default encoding/json behavior already round-trips the wire name or when
// the wire name cannot be written as a tag name at all.
func (f Field) Tag() string {
	name := f.WireName
	switch {
	case !Taggable(name):
		return ""
	case !f.Required:
		return fmt.Sprintf(`json:"%s,omitempty"`, name)
	case name == "-":
		// A bare "-" would drop the field.
		return `json:"-,"`
	case f.LocalName != name:
		return fmt.Sprintf(`json:"%s"`, name)
	}
	return ""
}

// Taggable reports whether encoding/json accepts name as the name part of a
// json struct tag. Other names fall back to the Go field name there.
func Taggable(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case strings.ContainsRune("!#$%&()*+-./:;<=>?@[]^_{|}~ ", r):
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return true
}

// EmitStruct derives the fields of an object schema in property order.
// A property that references the enclosing type is boxed.
func (r *Resolver) EmitStruct(typeName string, n *spec.Node) ([]Field, error) {
	if n == nil || n.Kind != spec.KindObject {
		return nil, fmt.Errorf("%s: not an object schema", typeName)
	}
	names := newUniqueNames()
	out := make([]Field, 0, len(n.Properties))
	for _, p := range n.Properties {
		t, err := r.Resolve(p.Schema)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typeName, p.Name, err)
		}
		if t.Kind == ExprNamed && t.Name == typeName {
			t.Boxed = true
		}
		required := n.IsRequired(p.Name)
		t.Optional = !required

		var doc string
		if p.Schema != nil {
			doc = docText(p.Schema.Description)
		}
		out = append(out, Field{
			WireName:  p.Name,
			LocalName: names.take(FieldName(p.Name)),
			Type:      t,
			Required:  required,
			Doc:       doc,
		})
	}
	return out, nil
}
