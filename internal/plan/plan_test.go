package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hupe1980/sysisolate/internal/category"
	"github.com/hupe1980/sysisolate/internal/model"
	"github.com/hupe1980/sysisolate/internal/rule"
)

const key = model.DefaultGroupKey

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func scenarioIndex() category.Index {
	return category.Index{
		Key:           key,
		Supporting:    sets.New[model.Category]("Pipe", "Duct"),
		NonSupporting: sets.New[model.Category]("Wall"),
	}
}

func scenarioPlan(t *testing.T, selector string) *FilterPlan {
	t.Helper()

	rules, err := rule.Build(key, selector, rule.BuildOptions{})
	require.NoError(t, err)

	p, err := Compose(scenarioIndex(), rules, selector)
	require.NoError(t, err)

	return p
}

func obj(id string, c model.Category, value *string) *model.TaggedObject {
	o := &model.TaggedObject{ID: id, Category: c}
	if value != nil {
		o.Properties = map[model.PropertyKey]*string{key: value}
	}

	return o
}

func str(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Compose
// ---------------------------------------------------------------------------

func TestCompose_Scenario(t *testing.T) {
	p := scenarioPlan(t, "HVAC-1, HVAC-2")

	assert.Equal(t, key, p.Key)
	assert.Equal(t, "HVAC-1, HVAC-2", p.GroupLabel)

	assert.Equal(t, "objects without system-name", p.ExcludeNoProperty.Name)
	assert.Equal(t, []model.Category{"Wall"}, p.ExcludeNoProperty.Categories)
	assert.Empty(t, p.ExcludeNoProperty.Rules)
	assert.Equal(t, Hidden, p.ExcludeNoProperty.Visibility)

	assert.Equal(t, "objects not in groups HVAC-1, HVAC-2", p.ExcludeOutsideGroups.Name)
	assert.Equal(t, []model.Category{"Duct", "Pipe"}, p.ExcludeOutsideGroups.Categories)
	assert.Equal(t, []rule.Rule{
		rule.NotEqualTrim(key, "HVAC-1"),
		rule.NotEqualTrim(key, "HVAC-2"),
	}, p.ExcludeOutsideGroups.Rules)
	assert.Equal(t, Hidden, p.ExcludeOutsideGroups.Visibility)
}

func TestCompose_DisjointAndExhaustive(t *testing.T) {
	idx := scenarioIndex()
	p := scenarioPlan(t, "HVAC-1")

	np := p.ExcludeNoProperty.CategorySet()
	og := p.ExcludeOutsideGroups.CategorySet()

	assert.Zero(t, np.Intersection(og).Len())
	assert.True(t, p.Universe().Equal(idx.Universe()))
}

func TestCompose_Idempotent(t *testing.T) {
	a := scenarioPlan(t, "HVAC-1, HVAC-2")
	b := scenarioPlan(t, "HVAC-1, HVAC-2")

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("composing twice differs (-first +second):\n%s", diff)
	}
}

func TestCompose_NoRules(t *testing.T) {
	p, err := Compose(scenarioIndex(), nil, "")
	require.ErrorIs(t, err, rule.ErrEmptyGroupSelector)
	assert.Nil(t, p)
}

func TestCompose_EmptyUniverse(t *testing.T) {
	idx, err := category.Partition(context.Background(), nil, key, category.QueryFunc(
		func(model.Category, model.PropertyKey) (bool, error) { return true, nil },
	))
	require.NoError(t, err)

	p, err := Compose(idx, []rule.Rule{rule.NotEqualTrim(key, "A")}, "A")
	require.NoError(t, err)
	assert.Equal(t, []model.Category{}, p.ExcludeNoProperty.Categories)
	assert.Equal(t, []model.Category{}, p.ExcludeOutsideGroups.Categories)
}

func TestCompose_DoesNotAliasRules(t *testing.T) {
	rules := []rule.Rule{rule.NotEqualTrim(key, "A")}

	p, err := Compose(scenarioIndex(), rules, "A")
	require.NoError(t, err)

	rules[0].Token = "mutated"
	assert.Equal(t, "A", p.ExcludeOutsideGroups.Rules[0].Token)
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *FilterPlan)
		wantErr string
	}{
		{
			"overlapping categories",
			func(p *FilterPlan) { p.ExcludeNoProperty.Categories = append(p.ExcludeNoProperty.Categories, "Pipe") },
			"governed by both filters",
		},
		{
			"rules on no-property filter",
			func(p *FilterPlan) { p.ExcludeNoProperty.Rules = []rule.Rule{rule.MissingProperty(key)} },
			"must not carry rules",
		},
		{
			"no rules on outside-groups filter",
			func(p *FilterPlan) { p.ExcludeOutsideGroups.Rules = nil },
			"has no rules",
		},
		{
			"foreign rule key",
			func(p *FilterPlan) { p.ExcludeOutsideGroups.Rules[0].Key = "level" },
			"unexpected rule",
		},
		{
			"visible filter",
			func(p *FilterPlan) { p.ExcludeOutsideGroups.Visibility = Visible },
			"must hide",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scenarioPlan(t, "HVAC-1")
			tt.mutate(p)

			err := p.Validate()
			require.ErrorIs(t, err, ErrInvalidPlan)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// ---------------------------------------------------------------------------
// Evaluation helpers
// ---------------------------------------------------------------------------

func TestGoverning(t *testing.T) {
	p := scenarioPlan(t, "HVAC-1")

	assert.Equal(t, p.ExcludeNoProperty.Name, p.Governing(obj("w1", "Wall", nil)).Name)
	assert.Equal(t, p.ExcludeOutsideGroups.Name, p.Governing(obj("p1", "Pipe", str("HVAC-1"))).Name)
	assert.Nil(t, p.Governing(obj("x", "Door", nil)))
}

func TestFilterSpec_Matches(t *testing.T) {
	p := scenarioPlan(t, "HVAC-1, HVAC-2")

	assert.True(t, p.ExcludeNoProperty.Matches(obj("w1", "Wall", nil)))
	assert.False(t, p.ExcludeNoProperty.Matches(obj("p1", "Pipe", nil)))

	og := p.ExcludeOutsideGroups
	assert.False(t, og.Matches(obj("p1", "Pipe", str("HVAC-1"))))
	assert.False(t, og.Matches(obj("d1", "Duct", str("HVAC-2"))))
	assert.True(t, og.Matches(obj("p2", "Pipe", str("SAN-1"))))
	assert.True(t, og.Matches(obj("p3", "Pipe", nil)))
	assert.False(t, og.Matches(obj("w1", "Wall", str("SAN-1"))), "wall is not governed")
}

func TestTokens(t *testing.T) {
	p := scenarioPlan(t, "A, B ,,C")
	assert.Equal(t, []string{"A", "B", "C"}, p.Tokens())
}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

func TestFormatPlan(t *testing.T) {
	var buf bytes.Buffer
	FormatPlan(&buf, scenarioPlan(t, "HVAC-1, HVAC-2"))
	out := buf.String()

	assert.Contains(t, out, "Plan: isolate system-name = HVAC-1, HVAC-2")
	assert.Contains(t, out, "Filter: objects without system-name [hidden]")
	assert.Contains(t, out, "categories: Wall")
	assert.Contains(t, out, "(none, applies to every object)")
	assert.Contains(t, out, "categories: Duct, Pipe")
	assert.Contains(t, out, `system-name not-equal "HVAC-1"`)
	assert.Contains(t, out, `and system-name not-equal "HVAC-2"`)
	assert.Contains(t, out, "Summary: 1 categories without system-name, 2 categories filtered by 2 rule(s)")
}

func TestFormatPlanCompact(t *testing.T) {
	var buf bytes.Buffer
	FormatPlanCompact(&buf, scenarioPlan(t, "HVAC-1, HVAC-2"))
	assert.Equal(t,
		"Plan: system-name -- hide 1 categories, filter 2 categories by groups [HVAC-1, HVAC-2]\n",
		buf.String())
}

func TestFormatPlanJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatPlanJSON(&buf, scenarioPlan(t, "HVAC-1")))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "HVAC-1", decoded["groupLabel"])
	assert.Contains(t, buf.String(), `"rules": []`)
}

// ---------------------------------------------------------------------------
// Changes
// ---------------------------------------------------------------------------

func TestChanges_Identical(t *testing.T) {
	p := scenarioPlan(t, "HVAC-1")
	assert.Empty(t, Changes(p, p))
	assert.Equal(t, "no changes", ChangeSummary(nil))
}

func TestChanges_GroupsAndCategories(t *testing.T) {
	oldPlan := scenarioPlan(t, "HVAC-1")

	rules, err := rule.Build(key, "HVAC-2", rule.BuildOptions{})
	require.NoError(t, err)

	newPlan, err := Compose(category.Index{
		Key:           key,
		Supporting:    sets.New[model.Category]("Pipe", "Wall"),
		NonSupporting: sets.New[model.Category]("Duct", "Door"),
	}, rules, "HVAC-2")
	require.NoError(t, err)

	changes := Changes(oldPlan, newPlan)
	assert.Equal(t, []Change{
		{Kind: "group-added", Detail: "HVAC-2"},
		{Kind: "group-removed", Detail: "HVAC-1"},
		{Kind: "category-moved", Detail: "Duct -> objects without system-name"},
		{Kind: "category-moved", Detail: "Wall -> objects not in groups HVAC-2"},
		{Kind: "category-added", Detail: "Door"},
	}, changes)

	assert.Equal(t, "1 group-added, 1 group-removed, 2 category-moved, 1 category-added", ChangeSummary(changes))
}

func TestChanges_GroupCase(t *testing.T) {
	build := func(selector string, caseSensitive bool) *FilterPlan {
		rules, err := rule.Build(key, selector, rule.BuildOptions{CaseSensitive: caseSensitive})
		require.NoError(t, err)

		p, err := Compose(scenarioIndex(), rules, selector)
		require.NoError(t, err)

		return p
	}

	tests := []struct {
		name          string
		old, new      string
		caseSensitive bool
		want          []Change
	}{
		{"case folded by default", "HVAC-1", "hvac-1", false, nil},
		{"folded groups still differ", "HVAC-1, SAN-1", "hvac-1", false, []Change{{Kind: "group-removed", Detail: "SAN-1"}}},
		{"case sensitive", "HVAC-1", "hvac-1", true, []Change{
			{Kind: "group-added", Detail: "hvac-1"},
			{Kind: "group-removed", Detail: "HVAC-1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Changes(build(tt.old, tt.caseSensitive), build(tt.new, tt.caseSensitive)))
		})
	}
}

// ---------------------------------------------------------------------------
// DiffPlans
// ---------------------------------------------------------------------------

func TestDiffPlans(t *testing.T) {
	a := scenarioPlan(t, "HVAC-1")
	b := scenarioPlan(t, "HVAC-2")

	same, err := DiffPlans(a, a, DefaultDiffOptions())
	require.NoError(t, err)
	assert.False(t, same.HasDifferences())
	assert.Empty(t, same.Changes)

	result, err := DiffPlans(a, b, DefaultDiffOptions())
	require.NoError(t, err)
	assert.True(t, result.HasDifferences())
	assert.Contains(t, result.Unified, "-groupLabel: HVAC-1")
	assert.Contains(t, result.Unified, "+groupLabel: HVAC-2")
	assert.Equal(t, []Change{
		{Kind: "group-added", Detail: "HVAC-2"},
		{Kind: "group-removed", Detail: "HVAC-1"},
	}, result.Changes)

	fromNothing, err := DiffPlans(nil, b, DefaultDiffOptions())
	require.NoError(t, err)
	assert.True(t, fromNothing.HasDifferences())
	assert.Empty(t, fromNothing.Changes)
}
