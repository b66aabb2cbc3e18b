// Package codegen turns a parsed API document into the sources of a typed
// Go client: one types file for the named schemas, one file per operation
// and an index of all operations.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/spec"
)

// DefaultModulePath is used when no module path is configured.
const DefaultModulePath = "client"

// Options configures Generate.
type Options struct {
	ModulePath  string
	PackageName string
	Logger      logging.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithModulePath sets the module path of the generated client.
func WithModulePath(p string) Option { return func(o *Options) { o.ModulePath = strings.TrimSpace(p) } }

// WithPackageName overrides the package name derived from the module path.
func WithPackageName(n string) Option { return func(o *Options) { o.PackageName = strings.TrimSpace(n) } }

// WithLogger sets the logger. A nil logger keeps the default no-op one.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Tree holds every generated source of one client.
type Tree struct {
	ModulePath  string
	PackageName string
	Title       string
	Version     string

	Types       []NamedType
	TypesSource []byte

	// Operations are sorted by FileName.
	Operations       []OperationFile
	AggregatorSource []byte

	Report Report
}

// MethodsDir is the directory of the operations package inside the module.
func (t *Tree) MethodsDir() string { return methodsPackage }

// AggregatorFile is the file name of the operations index.
func (t *Tree) AggregatorFile() string { return aggregatorStem + ".go" }

// Generate builds the full source tree for doc. Name collisions and
// operations without an operationId abort generation; every other failure
// skips the affected operation and is recorded in the report.
func Generate(ctx context.Context, doc *spec.Document, opts ...Option) (*Tree, error) {
	if doc == nil {
		return nil, errors.New("codegen: nil document")
	}
	o := Options{ModulePath: DefaultModulePath, Logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ModulePath == "" {
		o.ModulePath = DefaultModulePath
	}
	if o.PackageName == "" {
		o.PackageName = PackageName(o.ModulePath)
	}
	log := o.Logger.With("component", "codegen")

	tree := &Tree{
		ModulePath:  o.ModulePath,
		PackageName: o.PackageName,
		Title:       doc.Title,
		Version:     doc.Version,
	}
	res := NewResolver(doc.Schemas)

	typeOwners := map[string]string{}
	for _, h := range doc.Schemas.Handles() {
		nt, err := res.EmitNamedType(h)
		if err != nil {
			return nil, err
		}
		for _, id := range nt.identifiers() {
			if prev, dup := typeOwners[id]; dup {
				return nil, fmt.Errorf("%w: schemas %q and %q both declare %s", ErrNameCollision, prev, nt.SourceName, id)
			}
			typeOwners[id] = nt.SourceName
		}
		log.Debug("emitted type", "schema", nt.SourceName, "name", nt.Name, "kind", nt.Kind.String())
		tree.Types = append(tree.Types, nt)
	}

	for _, w := range doc.Warnings {
		tree.Report.warn("%s", w)
	}
	for _, item := range doc.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, skipped, err := res.EmitPathItem(item)
		if err != nil {
			return nil, err
		}
		tree.Report.Skipped = append(tree.Report.Skipped, skipped...)
		for _, f := range files {
			tree.Report.Warnings = append(tree.Report.Warnings, f.Warnings...)
			log.Debug("emitted operation", "operation", f.OperationID, "file", f.FileName)
		}
		tree.Operations = append(tree.Operations, files...)
	}
	sort.Slice(tree.Operations, func(i, j int) bool {
		return tree.Operations[i].FileName < tree.Operations[j].FileName
	})
	if err := checkOperationNames(tree.Operations); err != nil {
		return nil, err
	}
	tree.Report.sort()
	for _, s := range tree.Report.Skipped {
		log.Warn("operation skipped", "path", s.Path, "method", string(s.Method), "operation", s.OperationID, "reason", s.Err.Error())
	}
	for _, w := range tree.Report.Warnings {
		log.Warn(w)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var err error
	if tree.TypesSource, err = renderTypes(tree.PackageName, tree.Types); err != nil {
		return nil, err
	}
	for i := range tree.Operations {
		op := &tree.Operations[i]
		if op.Source, err = renderOperation(tree.ModulePath, op); err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.OperationID, err)
		}
	}
	if tree.AggregatorSource, err = renderAggregator(tree.ModulePath, tree.Operations); err != nil {
		return nil, err
	}
	log.Info("generated client", "types", len(tree.Types), "operations", len(tree.Operations), "skipped", len(tree.Report.Skipped))
	return tree, nil
}

// checkOperationNames rejects two operations sharing a file name or a
// package-level identifier of the methods package.
func checkOperationNames(ops []OperationFile) error {
	files := map[string]string{}
	idents := map[string]string{"Operation": "methods index", "Operations": "methods index"}
	for _, op := range ops {
		if prev, dup := files[op.FileName]; dup {
			return fmt.Errorf("%w: operations %q and %q both map to file %s", ErrNameCollision, prev, op.OperationID, op.FileName)
		}
		files[op.FileName] = op.OperationID
		for _, id := range op.Identifiers() {
			if prev, dup := idents[id]; dup {
				return fmt.Errorf("%w: %q and %q both declare %s", ErrNameCollision, prev, op.OperationID, id)
			}
			idents[id] = op.OperationID
		}
	}
	return nil
}

// PackageName derives a package name from the last element of a module
// path, skipping a major version suffix such as "v2".
func PackageName(modulePath string) string {
	elems := strings.Split(strings.Trim(path.Clean(modulePath), "/"), "/")
	last := elems[len(elems)-1]
	if len(elems) > 1 && isMajorVersion(last) {
		last = elems[len(elems)-2]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(last) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	switch {
	case name == "":
		return "client"
	case unicode.IsDigit(rune(name[0])):
		name = "x" + name
	case goKeywords[name]:
		name += "_"
	}
	return name
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
