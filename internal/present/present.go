// Package present renders lookup results for the console.
package present

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"binday/internal/extract"
	"binday/internal/schedule"
)

const (
	maxRawLines      = 10
	maxCandidates    = 10
	maxPageTextChars = 500
	width            = 50
)

var (
	heavyRule = strings.Repeat("=", width)
	lightRule = strings.Repeat("-", width)
)

// Render writes the schedule, or the lookup error, to w.
func Render(w io.Writer, s *schedule.Schedule, err error) error {
	var b strings.Builder
	if err != nil {
		renderError(&b, err)
	} else {
		renderSchedule(&b, s)
	}
	_, werr := io.WriteString(w, b.String())
	return werr
}

func renderError(b *strings.Builder, err error) {
	le := schedule.Classify(err)
	fmt.Fprintf(b, "\nError: %s\n", le.Message)
	if le.Debug != "" {
		fmt.Fprintf(b, "Debug info: %s\n", le.Debug)
	}
	if errors.Is(le, schedule.ErrAddressAmbiguous) && len(le.Candidates) > 0 {
		b.WriteString("\nAvailable addresses:\n")
		b.WriteString(lightRule + "\n")
		for i, addr := range head(le.Candidates, maxCandidates) {
			fmt.Fprintf(b, "  %d. %s\n", i+1, addr)
		}
		if len(le.Candidates) > maxCandidates {
			fmt.Fprintf(b, "  ... and %d more\n", len(le.Candidates)-maxCandidates)
		}
	}
}

func renderSchedule(b *strings.Builder, s *schedule.Schedule) {
	if s == nil {
		s = &schedule.Schedule{}
	}

	b.WriteString("\n" + heavyRule + "\n")
	b.WriteString("BIN COLLECTION SCHEDULE\n")
	b.WriteString(heavyRule + "\n")

	if s.Address != "" {
		fmt.Fprintf(b, "\nAddress: %s\n", s.Address)
	}

	if len(s.Collections) > 0 {
		if next, date, ok := schedule.Next(s.Collections); ok {
			b.WriteString("\nYOUR NEXT COLLECTION:\n")
			b.WriteString(heavyRule + "\n")
			fmt.Fprintf(b, "   %s\n", next.BinType)
			fmt.Fprintf(b, "   %s\n", date)
			b.WriteString(heavyRule + "\n")
		}

		b.WriteString("\nAll Upcoming Collections:\n")
		b.WriteString(lightRule + "\n")
		for _, c := range s.Collections {
			if len(c.Dates) > 1 {
				fmt.Fprintf(b, "\n%s:\n", c.BinType)
				for _, d := range c.Dates {
					fmt.Fprintf(b, "    • %s\n", d)
				}
				continue
			}
			fmt.Fprintf(b, "  • %s: %s\n", c.BinType, c.Date())
		}
	}

	if len(s.RawText) > 0 {
		b.WriteString("\nAdditional Information:\n")
		b.WriteString(lightRule + "\n")
		for _, text := range head(s.RawText, maxRawLines) {
			fmt.Fprintf(b, "  • %s\n", text)
		}
	}

	if s.PageText != "" {
		b.WriteString("\nPage Content:\n")
		b.WriteString(lightRule + "\n")
		b.WriteString(extract.Truncate(s.PageText, maxPageTextChars) + "\n")
		b.WriteString("...\n")
	}

	if s.Empty() {
		b.WriteString("\nNo collection information found.\n")
		b.WriteString("Please verify your postcode and street number are correct.\n")
	}

	b.WriteString(heavyRule + "\n\n")
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
