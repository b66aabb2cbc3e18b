package codegen

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/swagger2client/internal/spec"
)

// Fatal errors abort generation.
var (
	ErrMissingOperationID  = errors.New("operation has no operationId")
	ErrNameCollision       = errors.New("name collision")
	ErrUnresolvedReference = errors.New("unresolved schema reference")
	ErrSelfAlias           = errors.New("schema aliases itself")
)

// Recoverable errors skip a single operation.
var (
	ErrDeprecated                = errors.New("operation is deprecated")
	ErrContentParameter          = errors.New("parameter uses content instead of schema")
	ErrReferencedParameterSchema = errors.New("parameter schema is a reference")
	ErrMissingParameterSchema    = errors.New("parameter has no schema")
	ErrUnsupportedMediaType      = errors.New("no application/json or application/xml content")
)

// OperationError records why one operation was skipped.
type OperationError struct {
	Path        string
	Method      spec.HttpMethod
	OperationID string
	Err         error
}

func (e *OperationError) Error() string {
	id := e.OperationID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("%s %s (%s): %v", strings.ToUpper(string(e.Method)), e.Path, id, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Report collects what generation skipped or degraded.
type Report struct {
	Skipped  []*OperationError
	Warnings []string
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// sort orders entries by path, then method, then message.
func (r *Report) sort() {
	sort.SliceStable(r.Skipped, func(i, j int) bool {
		a, b := r.Skipped[i], r.Skipped[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return methodRank(a.Method) < methodRank(b.Method)
	})
	sort.Strings(r.Warnings)
}

func methodRank(m spec.HttpMethod) int {
	for i, v := range spec.Methods {
		if v == m {
			return i
		}
	}
	return len(spec.Methods)
}

// Empty reports whether nothing was skipped or degraded.
func (r *Report) Empty() bool {
	return r == nil || (len(r.Skipped) == 0 && len(r.Warnings) == 0)
}
