// Package vocab holds the declarative field vocabularies used to recognise
// form controls and bin collection data on the council's pages.
//
// The vocabularies are an ordered list of (attribute, substring, role) rules
// loaded from an embedded YAML document, so the terms can change without
// touching any control flow.
package vocab

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Attribute names an element property a rule inspects.
type Attribute string

const (
	AttrName        Attribute = "name"
	AttrID          Attribute = "id"
	AttrPlaceholder Attribute = "placeholder"
	AttrText        Attribute = "text"
	AttrValue       Attribute = "value"
)

// Role is the purpose a matching element is assumed to serve.
type Role string

const (
	RolePostcode Role = "postcode"
	RoleNumber   Role = "number"
	RoleAddress  Role = "address"
	RoleSearch   Role = "search"
	RoleContinue Role = "continue"
	RoleSubmit   Role = "submit"
)

// Attrs is the set of attribute values read from one element.
type Attrs map[Attribute]string

// Rule matches an element whose Attribute contains Substring.
type Rule struct {
	Attribute Attribute `yaml:"attribute" validate:"required,oneof=name id placeholder text value"`
	Substring string    `yaml:"substring" validate:"required"`
	Role      Role      `yaml:"role" validate:"required,oneof=postcode number address search continue submit"`
}

// Matches reports whether the rule's attribute contains its substring, ignoring case.
func (r Rule) Matches(attrs Attrs) bool {
	v, ok := attrs[r.Attribute]
	if !ok || v == "" {
		return false
	}
	return strings.Contains(strings.ToLower(v), r.Substring)
}

// Rules is an ordered rule list.
type Rules []Rule

// Match reports whether any rule for role matches attrs.
func (rs Rules) Match(role Role, attrs Attrs) bool {
	for _, r := range rs {
		if r.Role == role && r.Matches(attrs) {
			return true
		}
	}
	return false
}

// Classify returns the role of the first rule matching attrs.
func (rs Rules) Classify(attrs Attrs) (Role, bool) {
	for _, r := range rs {
		if r.Matches(attrs) {
			return r.Role, true
		}
	}
	return "", false
}

// Terms returns the distinct substrings registered for role, in rule order.
func (rs Rules) Terms(role Role) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, r := range rs {
		if r.Role != role || seen[r.Substring] {
			continue
		}
		seen[r.Substring] = true
		terms = append(terms, r.Substring)
	}
	return terms
}

// BinField maps a family of rendered date fields (Prefix1..PrefixN) to a bin label.
type BinField struct {
	Label  string `yaml:"label" validate:"required"`
	Prefix string `yaml:"prefix" validate:"required"`
}

// Ruleset is the complete vocabulary for one council site.
type Ruleset struct {
	Locator       Rules      `yaml:"locator" validate:"required,dive"`
	FormFields    Rules      `yaml:"form_fields" validate:"required,dive"`
	AddressSelect Rules      `yaml:"address_select" validate:"required,dive"`
	Buttons       Rules      `yaml:"buttons" validate:"required,dive"`
	BinKeywords   []string   `yaml:"bin_keywords" validate:"required,dive,required"`
	BroadKeywords []string   `yaml:"broad_keywords" validate:"required,dive,required"`
	BinFields     []BinField `yaml:"bin_fields" validate:"required,dive"`
	MaxFieldIndex int        `yaml:"max_field_index" validate:"min=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a YAML ruleset. Substrings and keywords are
// lower-cased so matching is case-insensitive.
func Parse(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to decode ruleset: %w", err)
	}
	if err := validate.Struct(&rs); err != nil {
		return nil, fmt.Errorf("invalid ruleset: %w", err)
	}

	for _, list := range []Rules{rs.Locator, rs.FormFields, rs.AddressSelect, rs.Buttons} {
		for i := range list {
			list[i].Substring = strings.ToLower(list[i].Substring)
		}
	}
	lowerAll(rs.BinKeywords)
	lowerAll(rs.BroadKeywords)

	return &rs, nil
}

var loadDefault = sync.OnceValues(func() (*Ruleset, error) {
	return Parse(defaultRules)
})

// Default returns the embedded ruleset. It panics if the embedded document is
// invalid, which the package tests rule out.
func Default() *Ruleset {
	rs, err := loadDefault()
	if err != nil {
		panic(err)
	}
	return rs
}

// ContainsAny reports whether text contains any keyword, ignoring case.
// Keywords are expected in lower case.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func lowerAll(s []string) {
	for i := range s {
		s[i] = strings.ToLower(s[i])
	}
}
