package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"binday/internal/extract"
	"binday/internal/form"
	"binday/internal/logger"
	"binday/internal/schedule"
	"binday/internal/vocab"
)

// rawTextLimit bounds the page text kept when nothing else was extracted.
const rawTextLimit = 1000

// Page is a fetched document and the URL it was finally served from.
type Page struct {
	URL        *url.URL
	StatusCode int
	Body       []byte
}

// Document parses the page body.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p.URL, err)
	}
	return doc, nil
}

// Static looks up schedules with plain HTTP requests.
type Static struct {
	config Config
	rules  *vocab.Ruleset
}

// NewStatic creates a static lookup. Zero config values fall back to DefaultConfig.
func NewStatic(cfg Config, rules *vocab.Ruleset) *Static {
	def := DefaultConfig()
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = def.ServiceURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if rules == nil {
		rules = vocab.Default()
	}
	return &Static{config: cfg, rules: rules}
}

// Fetch retrieves a single page.
func (s *Static) Fetch(ctx context.Context, target string) (*Page, error) {
	return s.newSession(ctx).get(target)
}

// Lookup fetches the calendar form, submits it for q and extracts the
// resulting schedule. The returned error is always a *schedule.LookupError.
func (s *Static) Lookup(ctx context.Context, q schedule.Query) (*schedule.Schedule, error) {
	log := logger.With("number", q.StreetNumber, "postcode", q.Postcode)
	log.Info("Fetching bin schedule")

	sess := s.newSession(ctx)
	page, err := sess.get(s.config.ServiceURL)
	if err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, schedule.Classify(err)
	}

	desc, err := form.Parse(doc, page.URL)
	if err != nil {
		return nil, err
	}
	filled := form.Fill(desc, q, s.rules.FormFields)
	log.Debug("Submitting form", "action", filled.Action, "method", filled.Method, "fields", len(filled.Fields))

	result, err := sess.submit(filled)
	if err != nil {
		return nil, err
	}
	resultDoc, err := result.Document()
	if err != nil {
		return nil, schedule.Classify(err)
	}

	sched := extract.Extract(resultDoc, s.rules)
	if sched.Empty() {
		log.Warn("No collections found in the response", "url", result.URL.String())
		text := strings.Join(strings.Fields(resultDoc.Find("body").Text()), " ")
		sched.PageText = extract.Truncate(text, rawTextLimit)
	}
	return sched, nil
}

// session is one collector, so cookies set by the form page are sent with
// the submission.
type session struct {
	c    *colly.Collector
	page *Page
	err  error
}

func (s *Static) newSession(ctx context.Context) *session {
	c := colly.NewCollector(
		colly.UserAgent(s.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.config.Timeout)

	sess := &session{c: c}
	c.OnResponse(func(r *colly.Response) {
		sess.page = &Page{URL: r.Request.URL, StatusCode: r.StatusCode, Body: r.Body}
		logger.Debug("Response received",
			"url", r.Request.URL.String(),
			"status", r.StatusCode,
			"size", humanize.Bytes(uint64(len(r.Body))))
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		sess.err = fmt.Errorf("status %d: %w", status, err)
		logger.Debug("Request failed", "status", status, "error", err)
	})
	return sess
}

func (sess *session) get(target string) (*Page, error) {
	return sess.do(target, func() error { return sess.c.Visit(target) })
}

func (sess *session) post(target string, data map[string]string) (*Page, error) {
	return sess.do(target, func() error { return sess.c.Post(target, data) })
}

func (sess *session) submit(d *form.Descriptor) (*Page, error) {
	if d.Method == "get" {
		target, err := d.SubmitURL()
		if err != nil {
			return nil, schedule.Wrap(schedule.KindNetwork, err, "Network error")
		}
		return sess.get(target)
	}
	return sess.post(d.Action, d.Map())
}

func (sess *session) do(target string, request func() error) (*Page, error) {
	sess.page, sess.err = nil, nil

	err := request()
	if err == nil {
		err = sess.err
	}
	if err == nil && sess.page == nil {
		err = fmt.Errorf("no response from %s", target)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, schedule.Wrap(schedule.KindTimeout, err, "Timeout waiting for page to load")
		}
		return nil, schedule.Wrap(schedule.KindNetwork, err, "Network error")
	}
	return sess.page, nil
}
