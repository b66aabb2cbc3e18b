// Package goemitter writes a generated client tree to disk: the fixed
// runtime files, the generated types and the methods package.
package goemitter

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/mark3labs/swagger2client/internal/codegen"
	"github.com/mark3labs/swagger2client/internal/logging"
	"github.com/mark3labs/swagger2client/internal/postprocess"
)

// GoVersion is written to the go directive of the generated go.mod.
const GoVersion = "1.21"

// ErrOutputNotEmpty is returned when the output directory has content and
// Force is not set.
var ErrOutputNotEmpty = errors.New("output directory is not empty")

//go:embed templates/*.tmpl
var templateFS embed.FS

var runtimeTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// runtimeFiles maps output paths to the template rendering them.
var runtimeFiles = map[string]string{
	"go.mod":        "go.mod.tmpl",
	".golangci.yml": "golangci.yml.tmpl",
	"doc.go":        "doc.go.tmpl",
	"request.go":    "request.go.tmpl",
	"route.go":      "route.go.tmpl",
	"client.go":     "client.go.tmpl",
	"errors.go":     "errors.go.tmpl",
}

// Options controls how the Go emitter writes a client.
type Options struct {
	OutDir string // required; target directory of the client module
	Force  bool   // replace a non-empty OutDir
	DryRun bool   // don't write, only plan
	// PostProcessor runs on the staged tree before it is moved into place.
	// nil skips post-processing.
	PostProcessor postprocess.Processor
	Logger        logging.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the resolved output location.
type Result struct {
	ModulePath  string
	PackageName string
	OutDir      string
	Planned     []PlannedFile
}

type runtimeData struct {
	ModulePath string
	Package    string
	GoVersion  string
	Title      string
	Version    string
}

// Emit writes tree to opts.OutDir. Files are written to a staging directory
// beside OutDir and post-processed there; only a fully successful run
// replaces OutDir. Sizes in the plan are those of the rendered files, before
// post-processing.
func Emit(ctx context.Context, tree *codegen.Tree, opts Options) (*Result, error) {
	if tree == nil {
		return nil, errors.New("goemitter: nil tree")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, errors.New("goemitter: OutDir is required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "goemitter")

	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}

	files, err := renderFiles(tree)
	if err != nil {
		return nil, err
	}
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	res := &Result{ModulePath: tree.ModulePath, PackageName: tree.PackageName, OutDir: abs}
	for _, rel := range rels {
		res.Planned = append(res.Planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}
	if opts.DryRun {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	existing, err := inspectOutDir(abs)
	if err != nil {
		return nil, err
	}
	if existing == dirNonEmpty && !opts.Force {
		return nil, fmt.Errorf("goemitter: %w: %q (use --force to overwrite)", ErrOutputNotEmpty, abs)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	staging, err := os.MkdirTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	log.Debug("staging client", "dir", staging, "files", len(rels))
	if err := stage(ctx, staging, rels, files, opts.PostProcessor); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	if err := swap(staging, abs, existing); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	log.Info("wrote client", "dir", abs, "files", len(rels))
	return res, nil
}

// renderFiles returns every output file keyed by slash-separated path.
func renderFiles(tree *codegen.Tree) (map[string][]byte, error) {
	data := runtimeData{
		ModulePath: tree.ModulePath,
		Package:    tree.PackageName,
		GoVersion:  GoVersion,
		Title:      tree.Title,
		Version:    tree.Version,
	}
	files := make(map[string][]byte, len(runtimeFiles)+len(tree.Operations)+2)
	for rel, name := range runtimeFiles {
		var buf bytes.Buffer
		if err := runtimeTemplates.ExecuteTemplate(&buf, name, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", rel, err)
		}
		files[rel] = buf.Bytes()
	}
	files["types.go"] = tree.TypesSource
	files[tree.MethodsDir()+"/"+tree.AggregatorFile()] = tree.AggregatorSource
	for _, op := range tree.Operations {
		files[tree.MethodsDir()+"/"+op.FileName] = op.Source
	}
	return files, nil
}

func stage(ctx context.Context, dir string, rels []string, files map[string][]byte, pp postprocess.Processor) error {
	for _, rel := range rels {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		if err := os.WriteFile(p, files[rel], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	if pp == nil {
		return nil
	}
	if err := pp.Process(ctx, dir); err != nil {
		return fmt.Errorf("post-process: %w", err)
	}
	return nil
}

type dirState int

const (
	dirMissing dirState = iota
	dirEmpty
	dirNonEmpty
)

func inspectOutDir(abs string) (dirState, error) {
	st, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return dirMissing, nil
	}
	if err != nil {
		return dirMissing, fmt.Errorf("stat out dir: %w", err)
	}
	if !st.IsDir() {
		return dirMissing, fmt.Errorf("goemitter: output %q is not a directory", abs)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return dirMissing, fmt.Errorf("read out dir: %w", err)
	}
	if len(entries) == 0 {
		return dirEmpty, nil
	}
	return dirNonEmpty, nil
}

// swap moves staging to abs. A previous non-empty abs is kept as a backup
// until the rename succeeds and restored if it fails.
func swap(staging, abs string, existing dirState) error {
	switch existing {
	case dirEmpty:
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("remove empty out dir: %w", err)
		}
	case dirNonEmpty:
		backup := abs + ".old-" + time.Now().Format("20060102150405")
		if err := os.Rename(abs, backup); err != nil {
			return fmt.Errorf("move previous output aside: %w", err)
		}
		if err := os.Rename(staging, abs); err != nil {
			_ = os.Rename(backup, abs)
			return fmt.Errorf("rename staged output: %w", err)
		}
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("remove previous output: %w", err)
		}
		return nil
	}
	if err := os.Rename(staging, abs); err != nil {
		return fmt.Errorf("rename staged output: %w", err)
	}
	return nil
}
