package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hupe1980/sysisolate/internal/model"
)

// FormatPlan writes a human-readable plan to the given writer.
func FormatPlan(w io.Writer, p *FilterPlan) {
	fmt.Fprintf(w, "Plan: isolate %s = %s\n", p.Key, p.GroupLabel)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, s := range p.Specs() {
		fmt.Fprintf(w, "\nFilter: %s [%s]\n", s.Name, s.Visibility)
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "  categories: %s\n", joinCategories(s.Categories))

		if len(s.Rules) == 0 {
			fmt.Fprintln(w, "  rules:      (none, applies to every object)")
			continue
		}

		for i, r := range s.Rules {
			label := "  rules:     "
			if i > 0 {
				label = "         and"
			}

			fmt.Fprintf(w, "%s %s\n", label, r)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d categories without %s, %d categories filtered by %d rule(s)\n\n",
		len(p.ExcludeNoProperty.Categories), p.Key,
		len(p.ExcludeOutsideGroups.Categories), len(p.ExcludeOutsideGroups.Rules))
}

// FormatPlanCompact writes a one-line summary of the plan.
func FormatPlanCompact(w io.Writer, p *FilterPlan) {
	fmt.Fprintf(w, "Plan: %s -- hide %d categories, filter %d categories by groups [%s]\n",
		p.Key,
		len(p.ExcludeNoProperty.Categories),
		len(p.ExcludeOutsideGroups.Categories),
		strings.Join(p.Tokens(), ", "),
	)
}

// FormatPlanJSON writes the plan as indented JSON.
func FormatPlanJSON(w io.Writer, p *FilterPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(p)
}

func joinCategories(cs []model.Category) string {
	if len(cs) == 0 {
		return "(none)"
	}

	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}

	return strings.Join(parts, ", ")
}

// Change is a single structural difference between two plans.
type Change struct {
	// Kind is one of "group-added", "group-removed", "category-moved",
	// "category-added", "category-removed".
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Changes compares two plans structurally. It reports groups that were
// added or removed, and categories that moved between the two filters or
// entered or left the universe.
func Changes(oldPlan, newPlan *FilterPlan) []Change {
	var changes []Change

	fold := !oldPlan.caseSensitive() || !newPlan.caseSensitive()
	oldTokens, newTokens := groupTokens(oldPlan, fold), groupTokens(newPlan, fold)

	for _, k := range sets.List(sets.KeySet(newTokens).Difference(sets.KeySet(oldTokens))) {
		changes = append(changes, Change{Kind: "group-added", Detail: newTokens[k]})
	}

	for _, k := range sets.List(sets.KeySet(oldTokens).Difference(sets.KeySet(newTokens))) {
		changes = append(changes, Change{Kind: "group-removed", Detail: oldTokens[k]})
	}

	oldNP := oldPlan.ExcludeNoProperty.CategorySet()
	newNP := newPlan.ExcludeNoProperty.CategorySet()
	oldU, newU := oldPlan.Universe(), newPlan.Universe()

	for _, c := range sets.List(oldU.Intersection(newU)) {
		if oldNP.Has(c) != newNP.Has(c) {
			to := newPlan.ExcludeOutsideGroups.Name
			if newNP.Has(c) {
				to = newPlan.ExcludeNoProperty.Name
			}

			changes = append(changes, Change{Kind: "category-moved", Detail: fmt.Sprintf("%s -> %s", c, to)})
		}
	}

	for _, c := range sets.List(newU.Difference(oldU)) {
		changes = append(changes, Change{Kind: "category-added", Detail: string(c)})
	}

	for _, c := range sets.List(oldU.Difference(newU)) {
		changes = append(changes, Change{Kind: "category-removed", Detail: string(c)})
	}

	return changes
}

// groupTokens maps the comparison form of each group name of p to the name
// as written in the plan. The first spelling wins.
func groupTokens(p *FilterPlan, fold bool) map[string]string {
	tokens := make(map[string]string)

	for _, t := range p.Tokens() {
		k := t
		if fold {
			k = strings.ToLower(t)
		}

		if _, ok := tokens[k]; !ok {
			tokens[k] = t
		}
	}

	return tokens
}

// ChangeSummary renders changes as a single line, e.g.
// "1 group-added, 2 category-moved".
func ChangeSummary(changes []Change) string {
	if len(changes) == 0 {
		return "no changes"
	}

	counts := map[string]int{}
	for _, c := range changes {
		counts[c.Kind]++
	}

	var parts []string

	for _, k := range []string{"group-added", "group-removed", "category-moved", "category-added", "category-removed"} {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}

	return strings.Join(parts, ", ")
}
