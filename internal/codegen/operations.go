package codegen

import (
	"fmt"
	"strings"

	"github.com/mark3labs/swagger2client/internal/spec"
)

// requestReserved lists identifiers a request struct already uses for its
// own members, so derived field names must avoid them.
var requestReserved = []string{
	"Body", "Params", "Do", "NoBody", "NoQuery",
	"RequestMethod", "RequestPath", "RequestBody", "RequestQuery",
}

// OperationFile is the request descriptor generated for one operation.
type OperationFile struct {
	FileName    string
	OperationID string
	TypeName    string
	// ParamsTypeName is empty when the operation has no query parameters.
	ParamsTypeName string
	Method         spec.HttpMethod
	Path           string
	Doc            string
	PathParams     []Field
	QueryParams    []Field
	Body           *TypeExpr
	// Response is nil when the operation returns no body.
	Response *TypeExpr
	Warnings []string
	Source   []byte
}

// Identifiers returns the package-level names the operation declares.
func (f *OperationFile) Identifiers() []string {
	ids := []string{f.TypeName, f.TypeName + "Method", f.TypeName + "Path"}
	if f.ParamsTypeName != "" {
		ids = append(ids, f.ParamsTypeName)
	}
	return ids
}

// EmitPathItem emits every operation of item in method order. Recoverable
// failures skip only the affected operation. A missing operationId is fatal.
func (r *Resolver) EmitPathItem(item spec.PathItem) ([]OperationFile, []*OperationError, error) {
	var (
		files   []OperationFile
		skipped []*OperationError
	)
	for i := range item.Operations {
		op := &item.Operations[i]
		fail := func(err error) *OperationError {
			return &OperationError{Path: item.Template, Method: op.Method, OperationID: op.ID, Err: err}
		}
		if op.Deprecated {
			skipped = append(skipped, fail(ErrDeprecated))
			continue
		}
		if op.ID == "" {
			return nil, nil, fail(ErrMissingOperationID)
		}
		f, err := r.emitOperation(op)
		if err != nil {
			skipped = append(skipped, fail(err))
			continue
		}
		files = append(files, f)
	}
	return files, skipped, nil
}

func (r *Resolver) emitOperation(op *spec.Operation) (OperationFile, error) {
	f := OperationFile{
		FileName:    fileStem(op.ID) + ".go",
		OperationID: op.ID,
		TypeName:    TypeName(op.ID),
		Method:      op.Method,
		Path:        op.Path,
		Doc:         docText(op.Description),
	}
	if f.Doc == "" {
		f.Doc = docText(op.Summary)
	}
	label := fmt.Sprintf("%s %s (%s)", strings.ToUpper(string(op.Method)), op.Path, op.ID)

	requestNames := newUniqueNames(requestReserved...)
	queryNames := newUniqueNames("Values")
	for _, p := range op.Parameters {
		switch p.In {
		case spec.InPath, spec.InQuery:
		default:
			f.Warnings = append(f.Warnings, fmt.Sprintf("%s: %s parameter %q ignored", label, p.In, p.Name))
			continue
		}
		switch {
		case p.HasContent:
			return f, fmt.Errorf("%w: %s", ErrContentParameter, p.Name)
		case p.Schema == nil:
			return f, fmt.Errorf("%w: %s", ErrMissingParameterSchema, p.Name)
		case p.Schema.Kind == spec.KindRef:
			return f, fmt.Errorf("%w: %s", ErrReferencedParameterSchema, p.Name)
		}
		t, err := r.Resolve(p.Schema)
		if err != nil {
			return f, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		field := Field{WireName: p.Name, Doc: docText(p.Description)}
		if p.In == spec.InPath {
			field.LocalName = requestNames.take(FieldName(p.Name))
			field.Required = true
			field.Type = t
			f.PathParams = append(f.PathParams, field)
			continue
		}
		field.LocalName = queryNames.take(FieldName(p.Name))
		field.Required = p.Required && !p.Schema.Nullable
		t.Optional = !field.Required
		field.Type = t
		f.QueryParams = append(f.QueryParams, field)
	}
	if len(f.QueryParams) > 0 {
		f.ParamsTypeName = f.TypeName + "Params"
	}

	if rb := op.RequestBody; rb != nil && len(rb.Content) > 0 {
		t, ok, err := r.payload(rb.Content)
		if err != nil {
			return f, fmt.Errorf("request body: %w", err)
		}
		if ok {
			f.Body = &t
		} else {
			f.Warnings = append(f.Warnings, fmt.Sprintf("%s: request body is not a schema reference; body omitted", label))
		}
	}

	resp := op.Responses["200"]
	if resp == nil {
		resp = op.Responses["default"]
	}
	if resp != nil && len(resp.Content) > 0 {
		t, ok, err := r.payload(resp.Content)
		if err != nil {
			return f, fmt.Errorf("response: %w", err)
		}
		if ok {
			f.Response = &t
		} else {
			f.Warnings = append(f.Warnings, fmt.Sprintf("%s: response is not a schema reference; decoded as no content", label))
		}
	}
	return f, nil
}

// payload picks application/json over application/xml and accepts a
// reference or an array of references. ok is false for other shapes.
func (r *Resolver) payload(content []spec.Media) (t TypeExpr, ok bool, err error) {
	m, found := spec.Lookup(content, "application/json")
	if !found {
		m, found = spec.Lookup(content, "application/xml")
	}
	if !found {
		return TypeExpr{}, false, ErrUnsupportedMediaType
	}
	n := m.Schema
	if n == nil {
		return TypeExpr{}, false, nil
	}
	if n.Kind == spec.KindArray && n.Items != nil && n.Items.Kind == spec.KindRef {
		elem, ok, err := r.payloadRef(n.Items.Ref)
		if !ok || err != nil {
			return TypeExpr{}, ok, err
		}
		return sliceOf(elem), true, nil
	}
	if n.Kind == spec.KindRef {
		return r.payloadRef(n.Ref)
	}
	return TypeExpr{}, false, nil
}

func (r *Resolver) payloadRef(ref spec.Reference) (TypeExpr, bool, error) {
	switch {
	case ref.Internal():
		return named(r.TypeNameOf(ref.Target)), true, nil
	case ref.Target == spec.External:
		return TypeExpr{}, false, nil
	default:
		return TypeExpr{}, false, fmt.Errorf("%w: %s", ErrUnresolvedReference, ref.Raw)
	}
}
