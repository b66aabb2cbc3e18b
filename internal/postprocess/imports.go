package postprocess

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/mark3labs/swagger2client/internal/logging"
)

// Imports formats every .go file below the tree the way goimports does:
// gofmt layout, grouped imports, unused imports removed.
type Imports struct {
	Logger logging.Logger
}

func (p Imports) Process(ctx context.Context, dir string) error {
	log := p.Logger
	if log == nil {
		log = logging.Nop()
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out, err := imports.Process(path, src, nil)
		if err != nil {
			return fmt.Errorf("format %s: %w", path, err)
		}
		if string(out) == string(src) {
			return nil
		}
		log.Debug("formatted", "file", path)
		return os.WriteFile(path, out, 0o644)
	})
}
