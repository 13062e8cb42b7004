// Package form reads HTML forms into descriptors, locates the postcode and
// street-number controls and fills them in for submission.
package form

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"binday/internal/schedule"
	"binday/internal/vocab"
)

// Field is a named control and its current value.
type Field struct {
	Name  string
	Value string
}

// Descriptor is the submittable shape of a form.
type Descriptor struct {
	Action string // absolute URL
	Method string // "get" or "post"
	Fields []Field
}

// Values converts the fields to url.Values. A repeated name keeps its last value.
func (d *Descriptor) Values() url.Values {
	v := make(url.Values, len(d.Fields))
	for _, f := range d.Fields {
		v.Set(f.Name, f.Value)
	}
	return v
}

// Map converts the fields to a plain map for POST bodies.
func (d *Descriptor) Map() map[string]string {
	m := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// SubmitURL returns the URL to request. For GET forms the fields are merged
// into the action's query string.
func (d *Descriptor) SubmitURL() (string, error) {
	if d.Method != "get" {
		return d.Action, nil
	}
	u, err := url.Parse(d.Action)
	if err != nil {
		return "", fmt.Errorf("invalid form action %q: %w", d.Action, err)
	}
	q := u.Query()
	for name, values := range d.Values() {
		q[name] = values
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Parse reads the first form of doc. base is the URL the document was
// fetched from and is used to resolve a relative action.
func Parse(doc *goquery.Document, base *url.URL) (*Descriptor, error) {
	sel := doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, schedule.Errorf(schedule.KindFormNotFound, "Could not find form on the page")
	}

	action, _ := sel.Attr("action")
	actionURL, err := base.Parse(strings.TrimSpace(action))
	if err != nil {
		return nil, schedule.Wrap(schedule.KindFormNotFound, err, "Form action is not a valid URL")
	}

	method := "post"
	if m, ok := sel.Attr("method"); ok && strings.EqualFold(strings.TrimSpace(m), "get") {
		method = "get"
	}

	d := &Descriptor{
		Action: actionURL.String(),
		Method: method,
	}

	sel.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		switch strings.ToLower(s.AttrOr("type", "text")) {
		case "submit", "button":
			return
		}
		d.Fields = append(d.Fields, Field{Name: name, Value: defaultValue(s)})
	})

	return d, nil
}

func defaultValue(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "textarea":
		return s.Text()
	case "select":
		opt := s.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = s.Find("option").First()
		}
		if opt.Length() == 0 {
			return ""
		}
		if v, ok := opt.Attr("value"); ok {
			return v
		}
		return strings.TrimSpace(opt.Text())
	default:
		return s.AttrOr("value", "")
	}
}

// Fill returns a copy of d with the postcode and street number written into
// the first fields whose names match the form_fields vocabulary. A role with
// no matching field gets a new field named after the role.
func Fill(d *Descriptor, q schedule.Query, rules vocab.Rules) *Descriptor {
	filled := &Descriptor{
		Action: d.Action,
		Method: d.Method,
		Fields: append([]Field(nil), d.Fields...),
	}

	postcodeIdx := filled.assign(rules, vocab.RolePostcode, q.Postcode, -1)
	filled.assign(rules, vocab.RoleNumber, q.StreetNumber, postcodeIdx)
	return filled
}

func (d *Descriptor) assign(rules vocab.Rules, role vocab.Role, value string, skip int) int {
	for i, f := range d.Fields {
		if i == skip {
			continue
		}
		if rules.Match(role, vocab.Attrs{vocab.AttrName: f.Name}) {
			d.Fields[i].Value = value
			return i
		}
	}
	d.Fields = append(d.Fields, Field{Name: string(role), Value: value})
	return len(d.Fields) - 1
}
