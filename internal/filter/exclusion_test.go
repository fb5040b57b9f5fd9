package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sysisolate/internal/model"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func makeObject(c model.Category, id string) *model.TaggedObject {
	return &model.TaggedObject{ID: id, Category: c}
}

func makeObjectWithProps(c model.Category, id string, props map[string]string) *model.TaggedObject {
	o := makeObject(c, id)
	o.Properties = make(map[model.PropertyKey]*string, len(props))

	for k, v := range props {
		o.Properties[model.PropertyKey(k)] = &v
	}

	return o
}

// ---------------------------------------------------------------------------
// Chain tests
// ---------------------------------------------------------------------------

func TestChain_Empty(t *testing.T) {
	objects := []*model.TaggedObject{makeObject("Pipe", "p1")}
	result, err := NewChain().Apply(context.Background(), objects)
	require.NoError(t, err)
	assert.Len(t, result.Included, 1)
	assert.Empty(t, result.Excluded)
}

func TestChain_MultipleFilters(t *testing.T) {
	objects := []*model.TaggedObject{
		makeObject("Pipe", "p1"),
		makeObject("Duct", "d1"),
		makeObject("Wall", "w1"),
		makeObject("Door", "x1"),
	}

	chain := NewChain(
		NewCategoryFilter([]string{"Duct"}),
		NewCategoryFilter([]string{"Door"}),
	)

	result, err := chain.Apply(context.Background(), objects)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "w1"}, result.IncludedIDs())
	assert.Equal(t, []string{"d1", "x1"}, result.ExcludedIDs())
}

func TestChain_AccumulatesExclusions(t *testing.T) {
	objects := []*model.TaggedObject{
		makeObject("Pipe", "p1"),
		makeObject("Pipe", "p2"),
		makeObject("Wall", "w1"),
	}

	chain := NewChain(
		NewIDFilter([]string{"p2"}),
		NewCategoryFilter([]string{"Wall"}),
	)

	result, err := chain.Apply(context.Background(), objects)
	require.NoError(t, err)
	require.Len(t, result.Excluded, 2)
	assert.Equal(t, "id", result.Excluded[0].Filter)
	assert.Equal(t, "category", result.Excluded[1].Filter)
}

func TestChain_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain(NewCategoryFilter([]string{"Pipe"})).Apply(ctx, []*model.TaggedObject{makeObject("Pipe", "p1")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewResult(t *testing.T) {
	r := NewResult()
	assert.Empty(t, r.Included)
	assert.Empty(t, r.Excluded)
	assert.Empty(t, r.IncludedIDs())
}

// ---------------------------------------------------------------------------
// CategoryFilter
// ---------------------------------------------------------------------------

func TestCategoryFilter(t *testing.T) {
	tests := []struct {
		name         string
		categories   []string
		wantIncluded []string
	}{
		{"exact", []string{"Pipe"}, []string{"d1", "w1"}},
		{"case-insensitive", []string{"pIPE", "WALL"}, []string{"d1"}},
		{"no match", []string{"Door"}, []string{"p1", "d1", "w1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := []*model.TaggedObject{
				makeObject("Pipe", "p1"),
				makeObject("Duct", "d1"),
				makeObject("Wall", "w1"),
			}

			result, err := NewCategoryFilter(tt.categories).Apply(context.Background(), objects)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIncluded, result.IncludedIDs())
		})
	}
}

func TestCategoryFilter_ExcludesWithReason(t *testing.T) {
	result, err := NewCategoryFilter([]string{"Wall"}).Apply(context.Background(),
		[]*model.TaggedObject{makeObject("Wall", "w1")})
	require.NoError(t, err)
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "excluded by category: Wall", result.Excluded[0].Reason)
}

// ---------------------------------------------------------------------------
// IDFilter
// ---------------------------------------------------------------------------

func TestIDFilter(t *testing.T) {
	objects := []*model.TaggedObject{makeObject("Pipe", "p1"), makeObject("Pipe", "p2")}

	result, err := NewIDFilter([]string{"p1", "missing"}).Apply(context.Background(), objects)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, result.IncludedIDs())
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "excluded by object ID: p1", result.Excluded[0].Reason)
}

// ---------------------------------------------------------------------------
// PropertyFilter
// ---------------------------------------------------------------------------

func propertyObjects() []*model.TaggedObject {
	return []*model.TaggedObject{
		makeObjectWithProps("Pipe", "p1", map[string]string{"system-name": "HVAC-1", "level": "L1"}),
		makeObjectWithProps("Pipe", "p2", map[string]string{"system-name": " SAN-1 ", "level": "L2"}),
		makeObjectWithProps("Duct", "d1", map[string]string{"level": "L1"}),
		{ID: "d2", Category: "Duct", Properties: map[model.PropertyKey]*string{"system-name": nil, "level": ptr("L3")}},
	}
}

func ptr(s string) *string { return &s }

func TestPropertyFilter(t *testing.T) {
	tests := []struct {
		name         string
		selector     string
		wantExcluded []string
	}{
		{"equality", "system-name=HVAC-1", []string{"p1"}},
		{"equality trims value", "system-name=SAN-1", []string{"p2"}},
		{"inequality", "level!=L1", []string{"p2", "d2"}},
		{"inequality matches missing property", "system-name!=HVAC-1", []string{"p2", "d1", "d2"}},
		{"inequality matches property without value", "system-name!=SAN-1", []string{"p1", "d1", "d2"}},
		{"equality skips property without value", "system-name=", nil},
		{"in", "system-name in (HVAC-1, SAN-1)", []string{"p1", "p2"}},
		{"in requires property", "system-name in (X)", nil},
		{"multiple selectors", "level=L1,system-name=HVAC-1", []string{"p1"}},
		{"missing property", "color=red", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewPropertyFilter(tt.selector)
			require.NoError(t, err)

			result, err := f.Apply(context.Background(), propertyObjects())
			require.NoError(t, err)

			if tt.wantExcluded == nil {
				assert.Empty(t, result.Excluded)
				return
			}

			assert.Equal(t, tt.wantExcluded, result.ExcludedIDs())
		})
	}
}

func TestPropertyFilter_PropertyWithoutValue(t *testing.T) {
	o := &model.TaggedObject{ID: "d2", Category: "Duct", Properties: map[model.PropertyKey]*string{"system-name": nil}}

	for _, selector := range []string{"system-name=HVAC-1", "system-name!=HVAC-1", "system-name in (HVAC-1)"} {
		f, err := NewPropertyFilter(selector)
		require.NoError(t, err)

		var result *Result

		assert.NotPanics(t, func() {
			result, err = f.Apply(context.Background(), []*model.TaggedObject{o})
		}, selector)
		require.NoError(t, err)

		if strings.Contains(selector, "!=") {
			assert.Equal(t, []string{"d2"}, result.ExcludedIDs(), selector)
		} else {
			assert.Empty(t, result.Excluded, selector)
		}
	}
}

func TestPropertyFilter_InvalidSelector(t *testing.T) {
	_, err := NewPropertyFilter("no-operator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid property selector")
}

func TestParsePropertySelector(t *testing.T) {
	tests := []struct {
		expr string
		want propertySelector
	}{
		{"level=L1", propertySelector{key: "level", op: selectorOpEqual, values: []string{"L1"}}},
		{"level != L1", propertySelector{key: "level", op: selectorOpNotEqual, values: []string{"L1"}}},
		{"level in (L1, L2)", propertySelector{key: "level", op: selectorOpIn, values: []string{"L1", "L2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := parsePropertySelector(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitSelectors(t *testing.T) {
	assert.Equal(t,
		[]string{"a=1", "b in (x,y)", "c!=2"},
		splitSelectors("a=1, b in (x,y) ,c!=2"))
}
