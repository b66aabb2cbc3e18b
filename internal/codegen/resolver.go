package codegen

import (
	"fmt"

	"github.com/mark3labs/swagger2client/internal/spec"
)

// Resolver maps schema nodes to Go type expressions. Go names of the named
// schemas are derived once per symbol table.
type Resolver struct {
	table *spec.SymbolTable
	names []string
}

// NewResolver derives the Go type name of every schema in table.
func NewResolver(table *spec.SymbolTable) *Resolver {
	r := &Resolver{table: table, names: make([]string, table.Len())}
	for _, h := range table.Handles() {
		r.names[h] = schemaTypeName(table.Name(h))
	}
	return r
}

// TypeNameOf returns the Go type name of the schema behind h.
func (r *Resolver) TypeNameOf(h spec.Handle) string {
	if h < 0 || int(h) >= len(r.names) {
		return ""
	}
	return r.names[h]
}

// Resolve returns the Go type for n. Only a component reference without a
// matching schema is an error; every other unknown shape degrades to any.
func (r *Resolver) Resolve(n *spec.Node) (TypeExpr, error) {
	if n == nil {
		return anyType, nil
	}
	switch n.Kind {
	case spec.KindScalar:
		return scalarType(n.Scalar, n.Format), nil
	case spec.KindEnum:
		return TypeExpr{Kind: ExprString}, nil
	case spec.KindArray:
		if n.Items == nil {
			return sliceOf(anyType), nil
		}
		elem, err := r.Resolve(n.Items)
		if err != nil {
			return TypeExpr{}, err
		}
		return sliceOf(elem), nil
	case spec.KindObject:
		return mapType, nil
	case spec.KindRef:
		return r.reference(n.Ref)
	default:
		return anyType, nil
	}
}

func (r *Resolver) reference(ref spec.Reference) (TypeExpr, error) {
	switch {
	case ref.Internal():
		return named(r.TypeNameOf(ref.Target)), nil
	case ref.Target == spec.External:
		return anyType, nil
	default:
		return TypeExpr{}, fmt.Errorf("%w: %s", ErrUnresolvedReference, ref.Raw)
	}
}

func scalarType(kind spec.ScalarKind, format string) TypeExpr {
	switch kind {
	case spec.String:
		return TypeExpr{Kind: ExprString}
	case spec.Integer:
		if format == "int64" {
			return TypeExpr{Kind: ExprInt64}
		}
		return TypeExpr{Kind: ExprInt32}
	case spec.Number:
		if format == "double" {
			return TypeExpr{Kind: ExprFloat64}
		}
		return TypeExpr{Kind: ExprFloat32}
	case spec.Boolean:
		return TypeExpr{Kind: ExprBool}
	}
	return anyType
}
