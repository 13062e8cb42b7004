package schedule

import "regexp"

const months = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`

// DatePattern matches DD/MM/YYYY and DD-MM-YY(YY), DD Month YYYY and
// Weekday DD Month YYYY, ignoring case.
var DatePattern = regexp.MustCompile(`(?i)` +
	`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b` +
	`|\b\d{1,2}\s+` + months + `\s+\d{4}\b` +
	`|\b(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s+\d{1,2}\s+` + months + `\s+\d{4}\b`)

// FindDates returns every date-like substring of text.
func FindDates(text string) []string {
	return DatePattern.FindAllString(text, -1)
}

// IsDate reports whether text contains a date-like substring.
func IsDate(text string) bool {
	return DatePattern.MatchString(text)
}
