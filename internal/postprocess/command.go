package postprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/mark3labs/swagger2client/internal/logging"
)

// Command runs an external fixer, e.g. "golangci-lint run --fix", with the
// tree as working directory. A non-zero exit is an error.
type Command struct {
	Name   string
	Args   []string
	Logger logging.Logger
}

// ParseCommand splits a command line into words the way a POSIX shell
// does, honoring quotes and backslash escapes. No shell runs the result, so
// pipes, redirections and command lists are rejected.
func ParseCommand(line string) (Command, error) {
	p := shellwords.NewParser()
	words, err := p.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("postprocess: parse command %q: %w", line, err)
	}
	if p.Position >= 0 {
		return Command{}, fmt.Errorf("postprocess: command %q: shell operators are not supported", line)
	}
	if len(words) == 0 {
		return Command{}, errors.New("postprocess: empty command")
	}
	return Command{Name: words[0], Args: words[1:]}, nil
}

func (c Command) String() string {
	words := make([]string, 0, len(c.Args)+1)
	for _, w := range append([]string{c.Name}, c.Args...) {
		if w == "" || strings.ContainsAny(w, " \t\n'\"\\") {
			w = strconv.Quote(w)
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

func (c Command) Process(ctx context.Context, dir string) error {
	log := c.Logger
	if log == nil {
		log = logging.Nop()
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	log.Debug("running fixer", "command", c.String(), "dir", dir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrFixer, c.String(), err, strings.TrimSpace(out.String()))
	}
	return nil
}
