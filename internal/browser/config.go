// Package browser drives headless Chrome through the council's JavaScript
// rendered calendar form, including the postcode search and address list
// steps the plain HTTP lookup cannot see.
package browser

import (
	"time"

	"binday/internal/scraper"
)

// Waits are the bounded waits and settle delays of a lookup.
type Waits struct {
	Frame        time.Duration // for the embedded form frame to appear
	AddressList  time.Duration // for the address select after a postcode search
	FrameSettle  time.Duration // after entering the frame
	SubmitSettle time.Duration // after clicking search, submit or continue
	SelectSettle time.Duration // after choosing an address
	ResultSettle time.Duration // before reading results
}

// Config holds browser session settings.
type Config struct {
	ServiceURL string
	FrameID    string
	UserAgent  string
	ExecPath   string // empty uses chromedp's browser discovery
	Headless   bool
	Width      int
	Height     int
	Waits      Waits
}

// DefaultConfig returns the settings used against the live site.
func DefaultConfig() Config {
	return Config{
		ServiceURL: scraper.ServiceURL,
		FrameID:    "fillform-frame-1",
		UserAgent:  scraper.UserAgent,
		Headless:   true,
		Width:      1920,
		Height:     1080,
		Waits: Waits{
			Frame:        20 * time.Second,
			AddressList:  20 * time.Second,
			FrameSettle:  2 * time.Second,
			SubmitSettle: 3 * time.Second,
			SelectSettle: 2 * time.Second,
			ResultSettle: 3 * time.Second,
		},
	}
}
