package spec

import "sort"

// Parsed document model consumed by the code generator. Everything here is
// built once by BuildDocument and never mutated afterwards.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
)

// Methods lists the supported HTTP methods in emission order.
var Methods = []HttpMethod{GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS}

// Document is the parsed API description.
type Document struct {
	Title   string
	Version string
	Schemas *SymbolTable
	Paths   []PathItem // sorted by Template
	// Warnings lists constructs dropped while building, e.g. trace operations.
	Warnings []string
}

// PathItem groups the operations sharing one path template.
type PathItem struct {
	Template   string
	Operations []Operation // in Methods order
}

type Operation struct {
	ID          string
	Method      HttpMethod
	Path        string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	// Parameters merges path-item and operation parameters. Operation-level
	// entries replace path-level ones in place; declaration order is kept.
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   map[string]*Response // by status code or "default"
}

type ParameterLocation string

const (
	InPath   ParameterLocation = "path"
	InQuery  ParameterLocation = "query"
	InHeader ParameterLocation = "header"
	InCookie ParameterLocation = "cookie"
)

type Parameter struct {
	Name        string
	In          ParameterLocation
	Description string
	Required    bool
	// Schema is nil when the parameter has no schema.
	Schema *Node
	// HasContent marks a parameter described through content instead of schema.
	HasContent bool
}

type RequestBody struct {
	Required bool
	Content  []Media // sorted by Mime
}

type Response struct {
	Description string
	Content     []Media // sorted by Mime
}

type Media struct {
	Mime   string
	Schema *Node // nil when the media type carries no schema
}

// Lookup returns the media entry for mime.
func Lookup(content []Media, mime string) (Media, bool) {
	for _, m := range content {
		if m.Mime == mime {
			return m, true
		}
	}
	return Media{}, false
}

// NodeKind tags the variant held by a Node.
type NodeKind int

const (
	KindAny NodeKind = iota
	KindScalar
	KindArray
	KindObject
	KindEnum
	KindRef
)

func (k NodeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindEnum:
		return "enum"
	case KindRef:
		return "reference"
	default:
		return "any"
	}
}

type ScalarKind string

const (
	String  ScalarKind = "string"
	Integer ScalarKind = "integer"
	Number  ScalarKind = "number"
	Boolean ScalarKind = "boolean"
)

// Node is one schema node: a scalar, array, object, string enumeration,
// reference, or an untyped value.
type Node struct {
	Kind NodeKind

	// KindScalar
	Scalar ScalarKind
	Format string

	// KindArray; nil when the array declares no items.
	Items *Node

	// KindObject
	Properties []Property
	Required   map[string]bool

	// KindEnum
	Enum []string

	// KindRef
	Ref Reference

	// Description is only kept for inline schemas.
	Description string
	Nullable    bool
}

// Property is one named member of an object node.
type Property struct {
	Name   string
	Schema *Node
}

// IsRequired reports whether the object node lists name as required.
func (n *Node) IsRequired(name string) bool {
	return n != nil && n.Required[name]
}

// Handle addresses a named schema in a SymbolTable.
type Handle int

const (
	// External marks a reference outside #/components/schemas.
	External Handle = -1
	// Unresolved marks a component reference with no matching schema.
	Unresolved Handle = -2
)

// Reference is a $ref resolved once against the symbol table.
type Reference struct {
	Raw    string
	Target Handle
}

// Internal reports whether the reference points at a named component schema.
func (r Reference) Internal() bool { return r.Target >= 0 }

// SymbolTable is the arena of named schemas, indexed by Handle in
// lexicographic name order.
type SymbolTable struct {
	names []string
	nodes []*Node
	index map[string]Handle
}

func newSymbolTable(names []string) *SymbolTable {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	t := &SymbolTable{
		names: sorted,
		nodes: make([]*Node, len(sorted)),
		index: make(map[string]Handle, len(sorted)),
	}
	for i, n := range sorted {
		t.index[n] = Handle(i)
	}
	return t
}

// Len returns the number of named schemas.
func (t *SymbolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Lookup returns the handle of a declared schema name.
func (t *SymbolTable) Lookup(name string) (Handle, bool) {
	if t == nil {
		return Unresolved, false
	}
	h, ok := t.index[name]
	return h, ok
}

// Name returns the declared name behind h.
func (t *SymbolTable) Name(h Handle) string {
	if t == nil || h < 0 || int(h) >= len(t.names) {
		return ""
	}
	return t.names[h]
}

// Node returns the schema behind h.
func (t *SymbolTable) Node(h Handle) *Node {
	if t == nil || h < 0 || int(h) >= len(t.nodes) {
		return nil
	}
	return t.nodes[h]
}

// Handles returns every handle in name order.
func (t *SymbolTable) Handles() []Handle {
	out := make([]Handle, t.Len())
	for i := range out {
		out[i] = Handle(i)
	}
	return out
}
