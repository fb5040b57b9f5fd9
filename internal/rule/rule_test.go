package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sysisolate/internal/model"
)

const key = model.DefaultGroupKey

func object(value *string) *model.TaggedObject {
	o := &model.TaggedObject{ID: "o", Category: "Pipe", Properties: map[model.PropertyKey]*string{}}
	o.Properties[key] = value

	return o
}

func str(s string) *string { return &s }

// ---------------------------------------------------------------------------
// ParseGroupSelector
// ---------------------------------------------------------------------------

func TestParseGroupSelector(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"A, B ,,C", []string{"A", "B", "C"}},
		{"HVAC-1", []string{"HVAC-1"}},
		{"  HVAC-1 ,  HVAC-2  ", []string{"HVAC-1", "HVAC-2"}},
		{"A,A", []string{"A", "A"}},
		{"", nil},
		{",, ,", nil},
		{"\t", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGroupSelector(tt.raw))
		})
	}
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuild_OneRulePerToken(t *testing.T) {
	rules, err := Build(key, "A, B ,,C", BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, []Rule{
		NotEqualTrim(key, "A"),
		NotEqualTrim(key, "B"),
		NotEqualTrim(key, "C"),
	}, rules)
}

func TestBuild_DuplicatesKept(t *testing.T) {
	rules, err := Build(key, "HVAC-1,HVAC-1", BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestBuild_EmptySelector(t *testing.T) {
	for _, raw := range []string{"", ",, ,", "   "} {
		rules, err := Build(key, raw, BuildOptions{})
		require.ErrorIs(t, err, ErrEmptyGroupSelector, "raw=%q", raw)
		assert.Nil(t, rules)
	}
}

func TestBuild_CaseSensitiveOption(t *testing.T) {
	rules, err := Build(key, "hvac-1", BuildOptions{CaseSensitive: true})
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].CaseSensitive)
}

// ---------------------------------------------------------------------------
// Matches
// ---------------------------------------------------------------------------

func TestNotEqualTrim_Matches(t *testing.T) {
	r := NotEqualTrim(key, "HVAC-1")

	tests := []struct {
		name string
		obj  *model.TaggedObject
		want bool
	}{
		{"same group", object(str("HVAC-1")), false},
		{"padded value", object(str("  HVAC-1 ")), false},
		{"case folded", object(str("hvac-1")), false},
		{"other group", object(str("HVAC-2")), true},
		{"prefix is not a match", object(str("HVAC-10")), true},
		{"multi-valued containing group", object(str("HVAC-2, HVAC-1")), false},
		{"no value", object(nil), true},
		{"property absent", &model.TaggedObject{ID: "w", Category: "Wall"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Matches(tt.obj))
		})
	}
}

func TestNotEqualTrim_CaseSensitive(t *testing.T) {
	r := NotEqualTrim(key, "HVAC-1")
	r.CaseSensitive = true

	assert.True(t, r.Matches(object(str("hvac-1"))))
	assert.False(t, r.Matches(object(str("HVAC-1"))))
}

func TestMissingProperty_Matches(t *testing.T) {
	r := MissingProperty(key)

	assert.True(t, r.Matches(&model.TaggedObject{ID: "w"}))
	assert.True(t, r.Matches(object(nil)))
	assert.True(t, r.Matches(object(str(" "))))
	assert.False(t, r.Matches(object(str("HVAC-1"))))
}

func TestUnknownKind_NeverMatches(t *testing.T) {
	r := Rule{Kind: "contains", Key: key, Token: "x"}
	assert.False(t, r.Matches(object(str("x"))))
	assert.Equal(t, `system-name contains "x"`, r.String())
}

func TestMatchesAll(t *testing.T) {
	rules, err := Build(key, "HVAC-1, HVAC-2", BuildOptions{})
	require.NoError(t, err)

	assert.False(t, MatchesAll(rules, object(str("HVAC-1"))), "member of first group stays visible")
	assert.False(t, MatchesAll(rules, object(str("HVAC-2"))), "member of second group stays visible")
	assert.False(t, MatchesAll(rules, object(str("HVAC-1, HVAC-2"))), "selected object stays visible")
	assert.True(t, MatchesAll(rules, object(str("SAN-1"))), "outsider is matched")
	assert.True(t, MatchesAll(nil, object(str("anything"))), "empty rule set matches unconditionally")
}

func TestRule_String(t *testing.T) {
	assert.Equal(t, `system-name not-equal "HVAC-1"`, NotEqualTrim(key, " HVAC-1 ").String())
	assert.Equal(t, "system-name is missing", MissingProperty(key).String())
}
