// Package plan composes the visibility plan that isolates a group of objects
// in a view: two hidden filters, one for categories that cannot carry the
// group property and one for objects outside the selected groups.
package plan

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hupe1980/sysisolate/internal/category"
	"github.com/hupe1980/sysisolate/internal/model"
	"github.com/hupe1980/sysisolate/internal/rule"
)

// ErrInvalidPlan is returned by Validate for a plan that is not
// self-consistent.
var ErrInvalidPlan = errors.New("invalid filter plan")

// Visibility is the visibility a filter sets on the objects it matches.
type Visibility string

// Visibility values.
const (
	Hidden  Visibility = "hidden"
	Visible Visibility = "visible"
)

// FilterSpec describes a single view filter: the categories it applies to
// and the rules an object of those categories must match. An empty rule set
// applies to every object of the categories.
type FilterSpec struct {
	Name       string           `json:"name"`
	Categories []model.Category `json:"categories"`
	Rules      []rule.Rule      `json:"rules"`
	Visibility Visibility       `json:"visibility"`
}

// CategorySet returns the spec's categories as a set.
func (s FilterSpec) CategorySet() sets.Set[model.Category] {
	return sets.New(s.Categories...)
}

// Governs reports whether obj falls under the spec's categories.
func (s FilterSpec) Governs(obj *model.TaggedObject) bool {
	for _, c := range s.Categories {
		if c == obj.Category {
			return true
		}
	}

	return false
}

// Matches reports whether the spec applies its visibility to obj.
func (s FilterSpec) Matches(obj *model.TaggedObject) bool {
	return s.Governs(obj) && rule.MatchesAll(s.Rules, obj)
}

// FilterPlan is the pair of filters that isolates the selected groups.
// A plan is immutable once composed and only valid for the category
// snapshot and group selector it was built from.
type FilterPlan struct {
	// Key is the group property the plan filters on.
	Key model.PropertyKey `json:"key"`
	// GroupLabel is the raw group selector the rules were built from.
	GroupLabel string `json:"groupLabel"`
	// ExcludeNoProperty hides every object whose category cannot carry Key.
	ExcludeNoProperty FilterSpec `json:"excludeNoProperty"`
	// ExcludeOutsideGroups hides objects that belong to none of the groups.
	ExcludeOutsideGroups FilterSpec `json:"excludeOutsideGroups"`
}

// NoPropertyName returns the name of the filter hiding categories without key.
func NoPropertyName(key model.PropertyKey) string {
	return fmt.Sprintf("objects without %s", key)
}

// OutsideGroupsName returns the name of the filter hiding objects outside
// the groups in label.
func OutsideGroupsName(label string) string {
	return fmt.Sprintf("objects not in groups %s", label)
}

// Compose bundles a category index and the group rules into a plan.
// The categories of both specs are sorted so that composing the same inputs
// twice yields structurally equal plans.
func Compose(idx category.Index, rules []rule.Rule, groupLabel string) (*FilterPlan, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("composing plan: %w", rule.ErrEmptyGroupSelector)
	}

	p := &FilterPlan{
		Key:        idx.Key,
		GroupLabel: groupLabel,
		ExcludeNoProperty: FilterSpec{
			Name:       NoPropertyName(idx.Key),
			Categories: sortedCategories(idx.NonSupporting),
			Rules:      []rule.Rule{},
			Visibility: Hidden,
		},
		ExcludeOutsideGroups: FilterSpec{
			Name:       OutsideGroupsName(groupLabel),
			Categories: sortedCategories(idx.Supporting),
			Rules:      append([]rule.Rule{}, rules...),
			Visibility: Hidden,
		},
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func sortedCategories(s sets.Set[model.Category]) []model.Category {
	if s.Len() == 0 {
		return []model.Category{}
	}

	return sets.List(s)
}

// Specs returns both filters in install order.
func (p *FilterPlan) Specs() []FilterSpec {
	return []FilterSpec{p.ExcludeNoProperty, p.ExcludeOutsideGroups}
}

// Universe returns the union of the categories governed by the plan.
func (p *FilterPlan) Universe() sets.Set[model.Category] {
	return p.ExcludeNoProperty.CategorySet().Union(p.ExcludeOutsideGroups.CategorySet())
}

// Tokens returns the group names the plan keeps visible, in rule order.
func (p *FilterPlan) Tokens() []string {
	tokens := make([]string, 0, len(p.ExcludeOutsideGroups.Rules))
	for _, r := range p.ExcludeOutsideGroups.Rules {
		tokens = append(tokens, r.Token)
	}

	return tokens
}

// caseSensitive reports whether the plan's rules compare group names exactly.
func (p *FilterPlan) caseSensitive() bool {
	for _, r := range p.ExcludeOutsideGroups.Rules {
		if !r.CaseSensitive {
			return false
		}
	}

	return len(p.ExcludeOutsideGroups.Rules) > 0
}

// Validate checks that the plan is ready to apply.
func (p *FilterPlan) Validate() error {
	np, og := p.ExcludeNoProperty, p.ExcludeOutsideGroups

	if overlap := np.CategorySet().Intersection(og.CategorySet()); overlap.Len() > 0 {
		return fmt.Errorf("%w: categories %v are governed by both filters", ErrInvalidPlan, sets.List(overlap))
	}

	if len(np.Rules) != 0 {
		return fmt.Errorf("%w: %q must not carry rules", ErrInvalidPlan, np.Name)
	}

	if len(og.Rules) == 0 {
		return fmt.Errorf("%w: %q has no rules: %w", ErrInvalidPlan, og.Name, rule.ErrEmptyGroupSelector)
	}

	for _, r := range og.Rules {
		if r.Kind != rule.KindNotEqualTrim || r.Key != p.Key {
			return fmt.Errorf("%w: unexpected rule %s in %q", ErrInvalidPlan, r, og.Name)
		}
	}

	for _, s := range p.Specs() {
		if s.Visibility != Hidden {
			return fmt.Errorf("%w: %q must hide, not %q", ErrInvalidPlan, s.Name, s.Visibility)
		}
	}

	return nil
}

// Governing returns the spec whose categories include obj's category, or
// nil when obj lies outside the plan's universe.
func (p *FilterPlan) Governing(obj *model.TaggedObject) *FilterSpec {
	switch {
	case p.ExcludeNoProperty.Governs(obj):
		return &p.ExcludeNoProperty
	case p.ExcludeOutsideGroups.Governs(obj):
		return &p.ExcludeOutsideGroups
	default:
		return nil
	}
}
