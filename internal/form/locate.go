package form

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"binday/internal/vocab"
)

// Element describes an input or select as seen by the field locator.
// Ref is an opaque handle the caller uses to act on the element later.
type Element struct {
	Ref         int
	Tag         string
	Type        string
	Name        string
	ID          string
	Placeholder string
	Hidden      bool // not rendered on a live page
}

// Attrs returns the attributes the locator vocabulary inspects.
func (e Element) Attrs() vocab.Attrs {
	return vocab.Attrs{
		vocab.AttrName:        e.Name,
		vocab.AttrID:          e.ID,
		vocab.AttrPlaceholder: e.Placeholder,
	}
}

// Candidate reports whether the element can hold user input.
func (e Element) Candidate() bool {
	if e.Hidden {
		return false
	}
	switch strings.ToLower(e.Type) {
	case "hidden", "submit", "button":
		return false
	}
	return true
}

// Elements lists the input and select elements under s in document order.
func Elements(s *goquery.Selection) []Element {
	var elems []Element
	s.Find("input, select").Each(func(i int, el *goquery.Selection) {
		tag := goquery.NodeName(el)
		typ := el.AttrOr("type", "text")
		if tag == "select" {
			typ = "select"
		}
		elems = append(elems, Element{
			Ref:         i,
			Tag:         tag,
			Type:        typ,
			Name:        el.AttrOr("name", ""),
			ID:          el.AttrOr("id", ""),
			Placeholder: el.AttrOr("placeholder", ""),
		})
	})
	return elems
}

// Locate returns the first candidate element, in document order, whose name,
// id or placeholder contains a vocabulary term for role.
func Locate(elems []Element, rules vocab.Rules, role vocab.Role) (Element, bool) {
	for _, e := range elems {
		if !e.Candidate() {
			continue
		}
		if rules.Match(role, e.Attrs()) {
			return e, true
		}
	}
	return Element{}, false
}

// Fields is the result of locating both controls of a lookup form.
type Fields struct {
	Postcode    Element
	HasPostcode bool
	Number      Element
	HasNumber   bool
}

// TwoStep reports whether the form only asks for a postcode and expects the
// address to be picked from a list afterwards.
func (f Fields) TwoStep() bool {
	return f.HasPostcode && !f.HasNumber
}

// Identified reports whether at least a postcode control was found.
func (f Fields) Identified() bool {
	return f.HasPostcode
}

// LocateFields finds the postcode and street-number controls. The number
// control is never the element already chosen for the postcode.
func LocateFields(elems []Element, rules vocab.Rules) Fields {
	var f Fields
	f.Postcode, f.HasPostcode = Locate(elems, rules, vocab.RolePostcode)

	rest := elems
	if f.HasPostcode {
		rest = make([]Element, 0, len(elems))
		for _, e := range elems {
			if e.Ref != f.Postcode.Ref {
				rest = append(rest, e)
			}
		}
	}
	f.Number, f.HasNumber = Locate(rest, rules, vocab.RoleNumber)
	return f
}
