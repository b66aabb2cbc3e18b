package codegen

// ExprKind tags the variant held by a TypeExpr.
type ExprKind int

const (
	ExprAny ExprKind = iota
	ExprString
	ExprInt32
	ExprInt64
	ExprFloat32
	ExprFloat64
	ExprBool
	ExprSlice
	ExprMap
	ExprNamed
)

// TypeExpr is a resolved Go type.
type TypeExpr struct {
	Kind ExprKind
	// Elem is the element type of ExprSlice.
	Elem *TypeExpr
	// Name is the Go type name of ExprNamed.
	Name string
	// Boxed marks a self-reference rendered through a pointer.
	Boxed bool
	// Optional marks a value that may be absent.
	Optional bool
}

var (
	anyType = TypeExpr{Kind: ExprAny}
	mapType = TypeExpr{Kind: ExprMap}
)

func sliceOf(elem TypeExpr) TypeExpr {
	return TypeExpr{Kind: ExprSlice, Elem: &elem}
}

func named(name string) TypeExpr {
	return TypeExpr{Kind: ExprNamed, Name: name}
}

// Nillable reports whether the zero value of the rendered type is nil, in
// which case optional values are not wrapped in a pointer.
func (t TypeExpr) Nillable() bool {
	switch t.Kind {
	case ExprAny, ExprSlice, ExprMap:
		return true
	}
	return t.Boxed
}

// Pointer reports whether the rendered type starts with "*".
func (t TypeExpr) Pointer() bool {
	return t.Boxed || (t.Optional && !t.Nillable())
}

// Render returns the Go source of t. qualifier prefixes named types, e.g. "api.".
func (t TypeExpr) Render(qualifier string) string {
	base := t.base(qualifier)
	if t.Pointer() {
		return "*" + base
	}
	return base
}

func (t TypeExpr) base(qualifier string) string {
	switch t.Kind {
	case ExprString:
		return "string"
	case ExprInt32:
		return "int32"
	case ExprInt64:
		return "int64"
	case ExprFloat32:
		return "float32"
	case ExprFloat64:
		return "float64"
	case ExprBool:
		return "bool"
	case ExprSlice:
		if t.Elem == nil {
			return "[]any"
		}
		return "[]" + t.Elem.Render(qualifier)
	case ExprMap:
		return "map[string]any"
	case ExprNamed:
		return qualifier + t.Name
	default:
		return "any"
	}
}

func (t TypeExpr) String() string { return t.Render("") }
