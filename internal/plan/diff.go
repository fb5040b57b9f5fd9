package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	sigsyaml "sigs.k8s.io/yaml"
)

// Diff is the difference between a baseline plan and a proposed one:
// the line diff of their YAML renderings and the structural changes.
type Diff struct {
	// Unified is the unified diff of the two YAML documents.
	Unified string
	// Changes are the structural differences, see Changes.
	Changes  []Change
	OldLabel string
	NewLabel string
}

// HasDifferences reports whether the two plans render differently.
func (d *Diff) HasDifferences() bool {
	return d.Unified != ""
}

// DiffOptions configures diff computation.
type DiffOptions struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultDiffOptions returns the default labels and three lines of context.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		OldLabel: "baseline",
		NewLabel: "proposed",
		Context:  3,
	}
}

// DiffPlans renders both plans as YAML and diffs them. A nil plan renders
// as an empty document and contributes no structural changes.
func DiffPlans(oldPlan, newPlan *FilterPlan, opts DiffOptions) (*Diff, error) {
	oldDoc, err := planYAML(oldPlan)
	if err != nil {
		return nil, err
	}

	newDoc, err := planYAML(newPlan)
	if err != nil {
		return nil, err
	}

	d, err := diffDocuments(oldDoc, newDoc, opts)
	if err != nil {
		return nil, err
	}

	if oldPlan != nil && newPlan != nil {
		d.Changes = Changes(oldPlan, newPlan)
	}

	return d, nil
}

func planYAML(p *FilterPlan) (string, error) {
	if p == nil {
		return "", nil
	}

	data, err := sigsyaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("rendering plan %q: %w", p.GroupLabel, err)
	}

	return string(data), nil
}

func diffDocuments(oldDoc, newDoc string, opts DiffOptions) (*Diff, error) {
	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(oldDoc),
		B:        splitLines(newDoc),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	return &Diff{
		Unified:  unified,
		OldLabel: opts.OldLabel,
		NewLabel: opts.NewLabel,
	}, nil
}

// ANSI escape sequences used by WriteDiff.
const (
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

// WriteDiff writes the unified diff followed by the structural changes,
// with ANSI colors when color is set.
func WriteDiff(w io.Writer, d *Diff, color bool) {
	if !d.HasDifferences() {
		fmt.Fprintln(w, "No differences found.")
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(d.Unified, "\n"), "\n") {
		if code := lineColor(line); color && code != "" {
			fmt.Fprintf(w, "%s%s%s\n", code, line, ansiReset)
			continue
		}

		fmt.Fprintln(w, line)
	}

	if len(d.Changes) == 0 {
		return
	}

	fmt.Fprintf(w, "\nChanges: %s\n", ChangeSummary(d.Changes))

	for _, c := range d.Changes {
		fmt.Fprintf(w, "  %-16s %s\n", c.Kind, c.Detail)
	}
}

func lineColor(line string) string {
	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		return ansiBold
	case strings.HasPrefix(line, "@@"):
		return ansiCyan
	case strings.HasPrefix(line, "-"):
		return ansiRed
	case strings.HasPrefix(line, "+"):
		return ansiGreen
	default:
		return ""
	}
}

// splitLines splits a document into lines that keep their trailing newline,
// as difflib expects.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
