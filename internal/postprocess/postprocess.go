// Package postprocess runs formatting and fixing tools over a generated
// source tree. The generator only depends on the Processor interface; the
// concrete tools live behind it.
package postprocess

import (
	"context"
	"errors"
)

// ErrFixer marks a failure reported by an external fixer command.
var ErrFixer = errors.New("post-process failed")

// Processor rewrites the files below dir in place.
type Processor interface {
	Process(ctx context.Context, dir string) error
}

// Func adapts a function to Processor.
type Func func(ctx context.Context, dir string) error

func (f Func) Process(ctx context.Context, dir string) error { return f(ctx, dir) }

// None leaves the tree untouched.
type None struct{}

func (None) Process(context.Context, string) error { return nil }

// Chain runs processors in order and stops at the first error.
type Chain []Processor

func (c Chain) Process(ctx context.Context, dir string) error {
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Process(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}
