// Package schedule defines the bin collection schedule produced by a lookup,
// the lookup query and the error taxonomy shared by both lookup variants.
package schedule

import (
	"strings"
	"time"
)

// A single collection
type Collection struct {
	BinType string   `json:"binType"`
	Dates   []string `json:"dates"`
}

// Date returns the scraped dates joined for display and deduplication.
func (c Collection) Date() string {
	return strings.Join(c.Dates, ", ")
}

// Schedule is a successful lookup.
type Schedule struct {
	Address     string       `json:"address,omitempty"`
	Collections []Collection `json:"collections"`
	RawText     []string     `json:"rawText,omitempty"`
	PageText    string       `json:"pageText,omitempty"`
}

// Empty reports whether nothing at all was scraped.
func (s *Schedule) Empty() bool {
	return len(s.Collections) == 0 && len(s.RawText) == 0 && s.PageText == ""
}

// Dedupe drops entries whose lower-cased (bin type, date) pair was already seen,
// keeping first-seen order.
func Dedupe(collections []Collection) []Collection {
	type key struct{ binType, date string }

	seen := make(map[key]bool, len(collections))
	unique := make([]Collection, 0, len(collections))
	for _, c := range collections {
		k := key{strings.ToLower(c.BinType), strings.ToLower(c.Date())}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, c)
	}
	return unique
}

// NextLayout is the only date format considered when picking the next collection.
const NextLayout = "Monday 2 January 2006"

// Next returns the collection whose first date is earliest, together with that
// date. Entries whose first date does not parse with NextLayout are skipped.
// Ties keep the earlier entry.
func Next(collections []Collection) (Collection, string, bool) {
	var (
		next     Collection
		nextDate time.Time
		found    bool
	)
	for _, c := range collections {
		if len(c.Dates) == 0 {
			continue
		}
		parsed, err := time.Parse(NextLayout, strings.TrimSpace(c.Dates[0]))
		if err != nil {
			continue
		}
		if !found || parsed.Before(nextDate) {
			next, nextDate, found = c, parsed, true
		}
	}
	if !found {
		return Collection{}, "", false
	}
	return next, next.Dates[0], true
}
