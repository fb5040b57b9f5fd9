package filter

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hupe1980/sysisolate/internal/model"
)

// CategoryFilter excludes objects whose category matches any of the specified
// categories.
type CategoryFilter struct {
	categories sets.Set[string]
}

// NewCategoryFilter creates a filter that excludes objects of any of the
// given categories. Matching is case-insensitive.
func NewCategoryFilter(categories []string) *CategoryFilter {
	s := sets.New[string]()
	for _, c := range categories {
		s.Insert(strings.ToLower(c))
	}

	return &CategoryFilter{categories: s}
}

// Apply filters out objects whose category matches.
func (f *CategoryFilter) Apply(_ context.Context, objects []*model.TaggedObject) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if f.categories.Has(strings.ToLower(string(o.Category))) {
			r.Excluded = append(r.Excluded, ExcludedObject{
				Object: o,
				Filter: "category",
				Reason: fmt.Sprintf("excluded by category: %s", o.Category),
			})
		} else {
			r.Included = append(r.Included, o)
		}
	}

	return r, nil
}

// IDFilter excludes objects whose ID matches any of the specified IDs.
type IDFilter struct {
	ids sets.Set[string]
}

// NewIDFilter creates a filter that excludes objects by ID.
func NewIDFilter(ids []string) *IDFilter {
	return &IDFilter{ids: sets.New(ids...)}
}

// Apply filters out objects whose ID matches.
func (f *IDFilter) Apply(_ context.Context, objects []*model.TaggedObject) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if f.ids.Has(o.ID) {
			r.Excluded = append(r.Excluded, ExcludedObject{
				Object: o,
				Filter: "id",
				Reason: fmt.Sprintf("excluded by object ID: %s", o.ID),
			})
		} else {
			r.Included = append(r.Included, o)
		}
	}

	return r, nil
}

// PropertyFilter excludes objects matching a property selector.
// Supports key=value (equality), key!=value (inequality), and
// key in (v1,v2) (set membership). Values are compared after trimming.
type PropertyFilter struct {
	selectors []propertySelector
}

type propertySelector struct {
	key    model.PropertyKey
	op     selectorOp
	values []string
}

type selectorOp int

const (
	selectorOpEqual selectorOp = iota
	selectorOpNotEqual
	selectorOpIn
)

// NewPropertyFilter creates a filter from a comma-separated selector string.
// Supported syntax: "key=value", "key!=value", "key in (v1,v2)".
func NewPropertyFilter(selectorExpr string) (*PropertyFilter, error) {
	parts := splitSelectors(selectorExpr)
	selectors := make([]propertySelector, 0, len(parts))

	for _, part := range parts {
		sel, err := parsePropertySelector(part)
		if err != nil {
			return nil, err
		}

		selectors = append(selectors, sel)
	}

	return &PropertyFilter{selectors: selectors}, nil
}

// Apply filters out objects whose properties match ALL selectors (AND semantics).
func (f *PropertyFilter) Apply(_ context.Context, objects []*model.TaggedObject) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if f.matches(o) {
			r.Excluded = append(r.Excluded, ExcludedObject{
				Object: o,
				Filter: "property",
				Reason: "excluded by property match",
			})
		} else {
			r.Included = append(r.Included, o)
		}
	}

	return r, nil
}

func (f *PropertyFilter) matches(o *model.TaggedObject) bool {
	for _, sel := range f.selectors {
		raw, ok := o.Lookup(sel.key)

		// A property without a value counts as absent.
		exists := ok && raw != nil

		var val string
		if exists {
			val = strings.TrimSpace(*raw)
		}

		switch sel.op {
		case selectorOpEqual:
			if !exists || val != sel.values[0] {
				return false
			}
		case selectorOpNotEqual:
			if exists && val == sel.values[0] {
				return false
			}
		case selectorOpIn:
			if !exists {
				return false
			}

			found := false

			for _, v := range sel.values {
				if val == v {
					found = true
					break
				}
			}

			if !found {
				return false
			}
		}
	}

	return true
}

// splitSelectors splits a selector expression on commas, but not inside parentheses.
func splitSelectors(expr string) []string {
	var parts []string

	depth := 0
	start := 0

	for i, ch := range expr {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(expr[start:i]))
				start = i + 1
			}
		}
	}

	if start < len(expr) {
		parts = append(parts, strings.TrimSpace(expr[start:]))
	}

	return parts
}

// parsePropertySelector parses a single property selector expression.
func parsePropertySelector(expr string) (propertySelector, error) {
	expr = strings.TrimSpace(expr)

	// "key in (v1,v2)"
	if inIdx := strings.Index(expr, " in ("); inIdx > 0 {
		key := strings.TrimSpace(expr[:inIdx])
		valStr := strings.TrimSuffix(expr[inIdx+5:], ")")

		values := strings.Split(valStr, ",")
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}

		return propertySelector{key: model.PropertyKey(key), op: selectorOpIn, values: values}, nil
	}

	if neqIdx := strings.Index(expr, "!="); neqIdx > 0 {
		return propertySelector{
			key:    model.PropertyKey(strings.TrimSpace(expr[:neqIdx])),
			op:     selectorOpNotEqual,
			values: []string{strings.TrimSpace(expr[neqIdx+2:])},
		}, nil
	}

	if eqIdx := strings.Index(expr, "="); eqIdx > 0 {
		return propertySelector{
			key:    model.PropertyKey(strings.TrimSpace(expr[:eqIdx])),
			op:     selectorOpEqual,
			values: []string{strings.TrimSpace(expr[eqIdx+1:])},
		}, nil
	}

	return propertySelector{}, fmt.Errorf("invalid property selector: %q", expr)
}
