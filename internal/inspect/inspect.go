// Package inspect dumps the structure of the calendar page's forms, scripts
// and frames, for working out what the lookup heuristics will see.
package inspect

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/rodaine/table"

	"binday/internal/extract"
	"binday/internal/form"
	"binday/internal/vocab"
)

const (
	maxOptions       = 5
	maxScriptExcerpt = 1000
	na               = "N/A"
)

// formDefinitionMarkers identify scripts that carry the form definition.
var formDefinitionMarkers = []string{"FormDefinition", "form_uri"}

// Write prints the page report to w. size is the raw page size in bytes.
func Write(w io.Writer, doc *goquery.Document, size int, rules *vocab.Ruleset) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Page size: %s\n", humanize.Bytes(uint64(size)))

	forms := doc.Find("form")
	fmt.Fprintf(bw, "Found %d form(s)\n\n", forms.Length())
	forms.Each(func(i int, f *goquery.Selection) {
		writeForm(bw, i+1, f, rules)
	})

	writeScripts(bw, doc)
	writeFrames(bw, doc)

	return bw.Flush()
}

func writeForm(w io.Writer, n int, f *goquery.Selection, rules *vocab.Ruleset) {
	fmt.Fprintf(w, "=== FORM %d ===\n", n)
	fmt.Fprintf(w, "Action: %s\n", f.AttrOr("action", na))
	fmt.Fprintf(w, "Method: %s\n", f.AttrOr("method", na))
	fmt.Fprintf(w, "ID: %s\n", f.AttrOr("id", na))
	fmt.Fprintf(w, "Class: %s\n", f.AttrOr("class", na))
	fmt.Fprintln(w, "\nForm Fields:")

	tbl := table.New("Tag", "Type", "Name", "ID", "Value", "Placeholder", "Role", "Options").WithWriter(w)
	f.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		typ := s.AttrOr("type", "text")
		if tag != "input" {
			typ = tag
		}
		el := form.Element{
			Tag:         tag,
			Type:        typ,
			Name:        s.AttrOr("name", ""),
			ID:          s.AttrOr("id", ""),
			Placeholder: s.AttrOr("placeholder", ""),
		}
		tbl.AddRow(tag, typ, orNA(el.Name), orNA(el.ID), s.AttrOr("value", ""), el.Placeholder,
			Role(el, rules), strings.Join(options(s), ", "))
	})
	tbl.Print()

	fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("-", 50))
}

// Role names the lookup role the heuristics would give el, or "-".
func Role(el form.Element, rules *vocab.Ruleset) string {
	if !el.Candidate() {
		return "-"
	}
	if el.Tag == "select" && rules.AddressSelect.Match(vocab.RoleAddress, el.Attrs()) {
		return string(vocab.RoleAddress)
	}
	if role, ok := rules.Locator.Classify(el.Attrs()); ok {
		return string(role)
	}
	return "-"
}

// options returns the first few option values of a select, falling back to
// the option text when there is no value.
func options(s *goquery.Selection) []string {
	var opts []string
	s.Find("option").EachWithBreak(func(i int, o *goquery.Selection) bool {
		if i >= maxOptions {
			return false
		}
		v, ok := o.Attr("value")
		if !ok {
			v = strings.TrimSpace(o.Text())
		}
		opts = append(opts, fmt.Sprintf("%q", v))
		return true
	})
	return opts
}

func writeScripts(w io.Writer, doc *goquery.Document) {
	scripts := doc.Find("script")
	fmt.Fprintf(w, "Found %d script tag(s)\n", scripts.Length())
	scripts.Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !containsAny(text, formDefinitionMarkers) {
			return
		}
		fmt.Fprintln(w, "\n=== Form Definition Found ===")
		fmt.Fprintln(w, extract.Truncate(text, maxScriptExcerpt))
		fmt.Fprintln(w, "...")
		fmt.Fprintln(w)
	})
}

func writeFrames(w io.Writer, doc *goquery.Document) {
	frames := doc.Find("iframe")
	fmt.Fprintf(w, "\nFound %d iframe(s)\n", frames.Length())
	frames.Each(func(_ int, f *goquery.Selection) {
		fmt.Fprintf(w, "  - src: %s\n", f.AttrOr("src", na))
		fmt.Fprintf(w, "    id: %s\n", f.AttrOr("id", na))
		fmt.Fprintf(w, "    class: %s\n", f.AttrOr("class", na))
	})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func orNA(s string) string {
	if s == "" {
		return na
	}
	return s
}
