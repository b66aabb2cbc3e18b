package codegen

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/mark3labs/swagger2client/internal/spec"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl"))

var templateFuncs = template.FuncMap{
	"quote": strconv.Quote,
	"tag":   tagLiteral,
	"local": func(t TypeExpr) string { return t.Render("") },
	"api":   func(t TypeExpr) string { return t.Render(apiQualifier) },
}

// apiQualifier is the import name of the root package inside the methods package.
const apiQualifier = "api."

// methodsPackage is the name and directory of the operations package.
const methodsPackage = "methods"

// tagLiteral renders a struct tag as a raw string literal, or as an
// interpreted one when the tag itself contains a backquote.
func tagLiteral(tag string) string {
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

// executeTemplate runs the named template and gofmt-formats the result.
func executeTemplate(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", name, err)
	}
	return out, nil
}

type typesData struct {
	Package string
	Imports []string
	Types   []NamedType
}

func renderTypes(pkg string, types []NamedType) ([]byte, error) {
	data := typesData{Package: pkg, Types: types}
	for _, t := range types {
		if t.Kind == ClosedEnum || t.CustomJSON {
			data.Imports = []string{"encoding/json", "fmt"}
			break
		}
	}
	return executeTemplate("types.go.tmpl", data)
}

type queryField struct {
	Field
	// Encode is one of "each", "deref", "nonnil" or "value".
	Encode string
}

type pathField struct {
	Field
	Placeholder string
}

type operationData struct {
	Module     string
	Imports    []string
	Op         *OperationFile
	HTTPMethod string
	PathFields []pathField
	Query      []queryField
	// BodyNillable marks a slice body that is sent as no body when nil.
	BodyNillable bool
}

var httpMethodConst = map[spec.HttpMethod]string{
	spec.GET:     "http.MethodGet",
	spec.POST:    "http.MethodPost",
	spec.PUT:     "http.MethodPut",
	spec.DELETE:  "http.MethodDelete",
	spec.PATCH:   "http.MethodPatch",
	spec.HEAD:    "http.MethodHead",
	spec.OPTIONS: "http.MethodOptions",
}

func renderOperation(module string, f *OperationFile) ([]byte, error) {
	data := operationData{
		Module:     module,
		Op:         f,
		HTTPMethod: httpMethodConst[f.Method],
	}
	imports := map[string]bool{"context": true, "net/http": true}
	for _, p := range f.PathParams {
		data.PathFields = append(data.PathFields, pathField{Field: p, Placeholder: "{" + p.WireName + "}"})
		imports["fmt"], imports["net/url"], imports["strings"] = true, true, true
	}
	for _, q := range f.QueryParams {
		data.Query = append(data.Query, queryField{Field: q, Encode: queryEncoding(q.Type)})
		imports["fmt"], imports["net/url"] = true, true
	}
	if f.Body != nil {
		data.BodyNillable = f.Body.Nillable()
	}
	for imp := range imports {
		data.Imports = append(data.Imports, imp)
	}
	sort.Strings(data.Imports)
	return executeTemplate("operation.go.tmpl", data)
}

func queryEncoding(t TypeExpr) string {
	switch {
	case t.Kind == ExprSlice:
		return "each"
	case t.Pointer():
		return "deref"
	case t.Nillable():
		return "nonnil"
	}
	return "value"
}

type aggregatorData struct {
	Module     string
	Operations []OperationFile
}

func renderAggregator(module string, ops []OperationFile) ([]byte, error) {
	return executeTemplate("methods.go.tmpl", aggregatorData{Module: module, Operations: ops})
}
