// Package scraper implements the plain HTTP lookup: fetch the council's
// calendar page, submit its form and extract the schedule from the response.
package scraper

import "time"

const (
	// ServiceURL is the Aberdeen City Council bin collection calendar.
	ServiceURL = "https://integration.aberdeencity.gov.uk/service/bin_collection_calendar___view"

	// UserAgent is sent on every request, the browser variant included.
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Config holds configuration for the static lookup.
type Config struct {
	ServiceURL string
	UserAgent  string
	Timeout    time.Duration // per request
}

// DefaultConfig returns the settings used against the live site.
func DefaultConfig() Config {
	return Config{
		ServiceURL: ServiceURL,
		UserAgent:  UserAgent,
		Timeout:    30 * time.Second,
	}
}
