// Package rule builds and evaluates the predicates that decide whether an
// object lies outside the selected groups.
//
// A group selector is the raw value of an object's group property. It may
// name several groups separated by commas ("HVAC-1, HVAC-2"). [Build] turns
// it into one NotEqualTrim rule per group token; the conjunction of those
// rules matches exactly the objects that belong to none of the groups.
package rule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/sysisolate/internal/model"
)

// Delimiter separates group tokens in a group property value.
const Delimiter = ","

// ErrEmptyGroupSelector is returned when a group selector yields no tokens.
var ErrEmptyGroupSelector = errors.New("group selector is empty")

// Kind identifies the predicate a Rule evaluates.
type Kind string

// Rule kinds.
const (
	// KindMissingProperty matches objects that carry no value for Key.
	KindMissingProperty Kind = "missing-property"
	// KindNotEqualTrim matches objects none of whose trimmed group tokens
	// equals Token.
	KindNotEqualTrim Kind = "not-equal-trim"
)

// Rule is a single predicate over an object's property.
type Rule struct {
	Kind Kind              `json:"kind"`
	Key  model.PropertyKey `json:"key"`
	// Token is the group name compared against; empty for MissingProperty.
	Token string `json:"token,omitempty"`
	// CaseSensitive disables case folding in NotEqualTrim comparisons.
	CaseSensitive bool `json:"caseSensitive,omitempty"`
}

// MissingProperty returns a rule matching objects without a value for key.
func MissingProperty(key model.PropertyKey) Rule {
	return Rule{Kind: KindMissingProperty, Key: key}
}

// NotEqualTrim returns a case-insensitive rule matching objects that are not
// in the group named token.
func NotEqualTrim(key model.PropertyKey, token string) Rule {
	return Rule{Kind: KindNotEqualTrim, Key: key, Token: strings.TrimSpace(token)}
}

// Matches evaluates the rule against obj.
func (r Rule) Matches(obj *model.TaggedObject) bool {
	v, ok := obj.Lookup(r.Key)
	hasValue := ok && v != nil

	switch r.Kind {
	case KindMissingProperty:
		return !hasValue || strings.TrimSpace(*v) == ""
	case KindNotEqualTrim:
		if !hasValue {
			return true
		}

		for _, tok := range ParseGroupSelector(*v) {
			if r.equal(tok) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func (r Rule) equal(tok string) bool {
	if r.CaseSensitive {
		return tok == r.Token
	}

	return strings.EqualFold(tok, r.Token)
}

// String renders the rule for humans, e.g. `system-name not-equal "HVAC-1"`.
func (r Rule) String() string {
	switch r.Kind {
	case KindMissingProperty:
		return fmt.Sprintf("%s is missing", r.Key)
	case KindNotEqualTrim:
		return fmt.Sprintf("%s not-equal %q", r.Key, r.Token)
	default:
		return fmt.Sprintf("%s %s %q", r.Key, r.Kind, r.Token)
	}
}

// MatchesAll reports whether obj matches every rule. An empty rule set
// matches unconditionally.
func MatchesAll(rules []Rule, obj *model.TaggedObject) bool {
	for _, r := range rules {
		if !r.Matches(obj) {
			return false
		}
	}

	return true
}

// ParseGroupSelector splits raw on the delimiter, trims every segment, and
// drops empty ones. Order and duplicates are kept.
func ParseGroupSelector(raw string) []string {
	var tokens []string

	for _, seg := range strings.Split(raw, Delimiter) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		tokens = append(tokens, seg)
	}

	return tokens
}

// BuildOptions tunes rule construction.
type BuildOptions struct {
	// CaseSensitive makes the built rules compare group names exactly.
	CaseSensitive bool
}

// Build returns one NotEqualTrim rule per group token of raw, in order.
// Duplicate tokens produce duplicate rules. A selector without any token
// fails with ErrEmptyGroupSelector.
func Build(key model.PropertyKey, raw string, opts BuildOptions) ([]Rule, error) {
	tokens := ParseGroupSelector(raw)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: %q has no group names", ErrEmptyGroupSelector, raw)
	}

	rules := make([]Rule, 0, len(tokens))
	for _, tok := range tokens {
		r := NotEqualTrim(key, tok)
		r.CaseSensitive = opts.CaseSensitive
		rules = append(rules, r)
	}

	return rules, nil
}
