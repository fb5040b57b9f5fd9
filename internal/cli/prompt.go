package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/sysisolate/internal/isolate"
	"github.com/hupe1980/sysisolate/internal/model"
)

// prompt asks for an object ID on an input stream until the user names an
// object carrying a group value, or cancels with an empty line or EOF.
type prompt struct {
	in    *bufio.Scanner
	out   io.Writer
	model *model.Model
	key   model.PropertyKey
}

func newPrompt(in io.Reader, out io.Writer, m *model.Model, key model.PropertyKey) *prompt {
	return &prompt{
		in:    bufio.NewScanner(in),
		out:   out,
		model: m,
		key:   key,
	}
}

// Select implements isolate.Selector.
func (p *prompt) Select(ctx context.Context) (*model.TaggedObject, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fmt.Fprintf(p.out, "Pick an object with a %s value (empty line cancels): ", p.key)

		if !p.in.Scan() {
			fmt.Fprintln(p.out)

			if err := p.in.Err(); err != nil {
				return nil, fmt.Errorf("reading selection: %w", err)
			}

			return nil, isolate.ErrCancelled
		}

		id := strings.TrimSpace(p.in.Text())
		if id == "" {
			return nil, isolate.ErrCancelled
		}

		obj, ok := p.model.Object(id)
		if !ok {
			fmt.Fprintf(p.out, "unknown object %q\n", id)
			continue
		}

		if !isolate.Selectable(obj, p.key) {
			fmt.Fprintf(p.out, "%s has no %s value, pick another object\n", obj, p.key)
			continue
		}

		return obj, nil
	}
}
