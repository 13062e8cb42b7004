// Package extract pulls bin collection entries out of result page markup.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"binday/internal/logger"
	"binday/internal/schedule"
	"binday/internal/vocab"
)

const (
	maxEntryLen  = 100
	minRawLen    = 10
	maxRawLen    = 200
	minListLen   = 5
	addressClass = "address"
)

var titleCase = cases.Title(language.BritishEnglish)

// Extract runs every extraction heuristic over doc. Structured collections
// are tried first; raw text is only gathered when none are found.
func Extract(doc *goquery.Document, rules *vocab.Ruleset) *schedule.Schedule {
	s := &schedule.Schedule{
		Address:     Address(doc),
		Collections: Collections(doc, rules),
	}
	if len(s.Collections) == 0 {
		s.RawText = RawText(doc, rules)
	}
	return s
}

// Collections returns the deduplicated structured entries of the first
// heuristic that finds any: short keyword text with dates, date inputs, then
// table rows.
func Collections(doc *goquery.Document, rules *vocab.Ruleset) []schedule.Collection {
	steps := []struct {
		name string
		run  func(*goquery.Document, *vocab.Ruleset) []schedule.Collection
	}{
		{"text", fromText},
		{"inputs", fromInputs},
		{"tables", fromTables},
	}
	for _, step := range steps {
		found := step.run(doc, rules)
		if len(found) == 0 {
			continue
		}
		logger.Debug("Extracted collections", "step", step.name, "entries", len(found))
		return schedule.Dedupe(found)
	}
	return nil
}

func fromText(doc *goquery.Document, rules *vocab.Ruleset) []schedule.Collection {
	var found []schedule.Collection
	doc.Find("div, span, p, td, li, label").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s)
		if utf8.RuneCountInString(text) >= maxEntryLen || !vocab.ContainsAny(text, rules.BinKeywords) {
			return
		}
		if dates := schedule.FindDates(text); len(dates) > 0 {
			found = append(found, schedule.Collection{BinType: text, Dates: dates})
		}
	})
	return found
}

func fromInputs(doc *goquery.Document, rules *vocab.Ruleset) []schedule.Collection {
	var found []schedule.Collection
	doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		name := s.AttrOr("name", "")
		if !vocab.ContainsAny(id, rules.BinKeywords) && !vocab.ContainsAny(name, rules.BinKeywords) {
			return
		}
		value := strings.TrimSpace(s.AttrOr("value", ""))
		if value == "" || !schedule.IsDate(value) {
			return
		}
		found = append(found, schedule.Collection{
			BinType: inputLabel(doc, id, name),
			Dates:   []string{value},
		})
	})
	return found
}

func inputLabel(doc *goquery.Document, id, name string) string {
	if id != "" {
		var label string
		doc.Find("label").EachWithBreak(func(_ int, l *goquery.Selection) bool {
			if l.AttrOr("for", "") == id {
				label = cleanText(l)
				return false
			}
			return true
		})
		if label != "" {
			return label
		}
	}
	ident := id
	if ident == "" {
		ident = name
	}
	return titleCase.String(strings.ReplaceAll(ident, "_", " "))
}

func fromTables(doc *goquery.Document, rules *vocab.Ruleset) []schedule.Collection {
	var found []schedule.Collection
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			binType := cleanText(cells.Eq(0))
			date := cleanText(cells.Eq(1))
			if binType == "" || date == "" || !vocab.ContainsAny(binType, rules.BinKeywords) {
				return
			}
			found = append(found, schedule.Collection{BinType: binType, Dates: []string{date}})
		})
	})
	return found
}

// RawText collects list items longer than a few characters and divs of
// moderate length mentioning a broad bin keyword. Exact duplicates are dropped.
func RawText(doc *goquery.Document, rules *vocab.Ruleset) []string {
	var raw []string
	seen := make(map[string]bool)
	add := func(text string) {
		if seen[text] {
			return
		}
		seen[text] = true
		raw = append(raw, text)
	}

	doc.Find("ul, ol, dl").Find("li, dt, dd").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s); utf8.RuneCountInString(text) > minListLen {
			add(text)
		}
	})
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s)
		n := utf8.RuneCountInString(text)
		if n > minRawLen && n < maxRawLen && vocab.ContainsAny(text, rules.BroadKeywords) {
			add(text)
		}
	})
	return raw
}

// Address returns the text of the first h2, h3 or div whose class mentions
// an address, or "".
func Address(doc *goquery.Document) string {
	var address string
	doc.Find("h2, h3, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		if !ok || !strings.Contains(strings.ToLower(class), addressClass) {
			return true
		}
		address = cleanText(s)
		return false
	})
	return address
}

// cleanText returns the element's text with runs of whitespace collapsed.
func cleanText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Truncate returns at most the first n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
