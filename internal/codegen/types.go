package codegen

import (
	"fmt"

	"github.com/mark3labs/swagger2client/internal/spec"
)

// TypeKind says how a named schema is declared in Go.
type TypeKind int

const (
	// Record is a struct.
	Record TypeKind = iota
	// ClosedEnum is a string type with a fixed set of constants.
	ClosedEnum
	// Alias is a type alias of a resolved type.
	Alias
)

func (k TypeKind) String() string {
	switch k {
	case Record:
		return "record"
	case ClosedEnum:
		return "enum"
	default:
		return "alias"
	}
}

// NamedType is the Go declaration generated for one named schema.
type NamedType struct {
	Name       string
	SourceName string
	Kind       TypeKind
	Doc        string
	Fields     []Field
	Variants   []Variant
	Underlying TypeExpr
	// Defined renders an Alias as a defined type. Set when the underlying
	// type mentions the type itself, which Go aliases cannot express.
	Defined bool
	// CustomJSON marks a Record with a property name that no json tag can
	// carry. Such records get MarshalJSON and UnmarshalJSON methods keyed by
	// the exact wire names instead of struct tags.
	CustomJSON bool
}

// EmitNamedType dispatches the schema behind h to the struct, enum or alias
// emitter.
func (r *Resolver) EmitNamedType(h spec.Handle) (NamedType, error) {
	n := r.table.Node(h)
	nt := NamedType{
		Name:       r.TypeNameOf(h),
		SourceName: r.table.Name(h),
	}
	if n == nil {
		nt.Kind, nt.Underlying = Alias, anyType
		return nt, nil
	}
	nt.Doc = docText(n.Description)

	var err error
	switch {
	case n.Kind == spec.KindObject && len(n.Properties) > 0:
		nt.Kind = Record
		nt.Fields, err = r.EmitStruct(nt.Name, n)
		for _, f := range nt.Fields {
			if !Taggable(f.WireName) {
				nt.CustomJSON = true
			}
		}
	case n.Kind == spec.KindObject:
		nt.Kind, nt.Underlying = Alias, mapType
	case n.Kind == spec.KindEnum:
		nt.Kind = ClosedEnum
		nt.Variants, err = EmitEnum(nt.Name, n)
	default:
		nt.Kind = Alias
		nt.Underlying, err = r.Resolve(n)
		if err == nil && nt.Underlying.Kind == ExprNamed && nt.Underlying.Name == nt.Name {
			err = ErrSelfAlias
		}
		nt.Defined = mentions(nt.Underlying, nt.Name)
	}
	if err != nil {
		return NamedType{}, fmt.Errorf("schema %q: %w", nt.SourceName, err)
	}
	return nt, nil
}

// identifiers returns the package-level names the declaration introduces.
func (nt NamedType) identifiers() []string {
	ids := []string{nt.Name}
	for _, v := range nt.Variants {
		ids = append(ids, v.Name)
	}
	return ids
}

func mentions(t TypeExpr, name string) bool {
	switch t.Kind {
	case ExprNamed:
		return t.Name == name
	case ExprSlice:
		return t.Elem != nil && mentions(*t.Elem, name)
	}
	return false
}
