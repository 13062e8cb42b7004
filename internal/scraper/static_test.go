package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"binday/internal/logger"
	"binday/internal/schedule"
)

const calendarForm = `<html><body>
<h1>Bin collection calendar</h1>
<form action="/service/lookup" method="%s">
	<input type="hidden" name="token" value="abc123">
	<input type="text" name="postcode">
	<input type="text" name="house_number">
	<input type="submit" name="go" value="Search">
</form>
</body></html>`

const calendarResult = `<html><body>
<div class="address">3 High Street, Aberdeen</div>
<ul>
	<li>General Waste: Monday 01 January 2024</li>
	<li>Food Waste: Tuesday 02 January 2024</li>
</ul>
</body></html>`

// fakeCouncil serves a form page and records every submission.
type fakeCouncil struct {
	mu          sync.Mutex
	formPage    string
	resultPage  string
	submissions []map[string]string
	userAgents  []string
	cookies     []string
}

func (f *fakeCouncil) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userAgents = append(f.userAgents, r.UserAgent())

	switch r.URL.Path {
	case "/service/view":
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
		fmt.Fprint(w, f.formPage)
	case "/service/lookup":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		values := make(map[string]string)
		for k := range r.Form {
			values[k] = r.Form.Get(k)
		}
		values["_method"] = r.Method
		f.submissions = append(f.submissions, values)
		if c, err := r.Cookie("session"); err == nil {
			f.cookies = append(f.cookies, c.Value)
		}
		fmt.Fprint(w, f.resultPage)
	default:
		http.NotFound(w, r)
	}
}

func newTestStatic(serverURL string) *Static {
	return NewStatic(Config{ServiceURL: serverURL + "/service/view", Timeout: 5 * time.Second}, nil)
}

func TestLookupSubmitsForm(t *testing.T) {
	for _, method := range []string{"post", "get"} {
		t.Run(method, func(t *testing.T) {
			council := &fakeCouncil{
				formPage:   fmt.Sprintf(calendarForm, method),
				resultPage: calendarResult,
			}
			server := httptest.NewServer(council)
			defer server.Close()

			q := schedule.Query{StreetNumber: "3", Postcode: "AB10 1AB"}
			sched, err := newTestStatic(server.URL).Lookup(context.Background(), q)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}

			if len(council.submissions) != 1 {
				t.Fatalf("Expected exactly one submission, got %d", len(council.submissions))
			}
			sub := council.submissions[0]
			if sub["_method"] != strings.ToUpper(method) {
				t.Errorf("Expected %s submission, got %s", strings.ToUpper(method), sub["_method"])
			}
			if sub["postcode"] != "AB10 1AB" || sub["house_number"] != "3" || sub["token"] != "abc123" {
				t.Errorf("Unexpected submitted fields: %v", sub)
			}
			if _, ok := sub["go"]; ok {
				t.Error("Submit buttons must not be sent")
			}
			if len(council.cookies) != 1 || council.cookies[0] != "s1" {
				t.Errorf("Expected the session cookie on the submission, got %v", council.cookies)
			}
			for _, ua := range council.userAgents {
				if ua != UserAgent {
					t.Errorf("Unexpected user agent %q", ua)
				}
			}

			if sched.Address != "3 High Street, Aberdeen" {
				t.Errorf("Unexpected address %q", sched.Address)
			}
			if len(sched.Collections) != 2 || sched.Collections[0].BinType != "General Waste: Monday 01 January 2024" {
				t.Errorf("Unexpected collections %+v", sched.Collections)
			}
		})
	}
}

func TestLookupWithoutFormDoesNotSubmit(t *testing.T) {
	council := &fakeCouncil{formPage: `<html><body><p>Service unavailable</p></body></html>`}
	server := httptest.NewServer(council)
	defer server.Close()

	_, err := newTestStatic(server.URL).Lookup(context.Background(), schedule.Query{StreetNumber: "1", Postcode: "AB10 1AB"})
	if !errors.Is(err, schedule.ErrFormNotFound) {
		t.Fatalf("Expected form-not-found, got %v", err)
	}
	if len(council.submissions) != 0 {
		t.Errorf("Expected no submission, got %d", len(council.submissions))
	}
}

func TestLookupNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestStatic(server.URL).Lookup(context.Background(), schedule.Query{StreetNumber: "1", Postcode: "AB10 1AB"})
	if !errors.Is(err, schedule.ErrNetwork) {
		t.Fatalf("Expected network error, got %v", err)
	}
	var le *schedule.LookupError
	if !errors.As(err, &le) || le.Debug == "" {
		t.Errorf("Expected debug text on network errors, got %+v", le)
	}
}

func TestLookupKeepsPageTextWhenNothingExtracted(t *testing.T) {
	council := &fakeCouncil{
		formPage:   fmt.Sprintf(calendarForm, "post"),
		resultPage: `<html><body><p>Please call us on 03000 200 292.</p></body></html>`,
	}
	server := httptest.NewServer(council)
	defer server.Close()

	sched, err := newTestStatic(server.URL).Lookup(context.Background(), schedule.Query{StreetNumber: "1", Postcode: "AB10 1AB"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if sched.PageText != "Please call us on 03000 200 292." {
		t.Errorf("Unexpected page text %q", sched.PageText)
	}
}

func TestLookupCapsPageTextByCharacters(t *testing.T) {
	var logs bytes.Buffer
	logger.Init(logger.Options{Output: &logs})
	defer logger.Init(logger.Options{})

	council := &fakeCouncil{
		formPage:   fmt.Sprintf(calendarForm, "post"),
		resultPage: "<html><body><p>" + strings.Repeat("£", rawTextLimit+20) + "</p></body></html>",
	}
	server := httptest.NewServer(council)
	defer server.Close()

	sched, err := newTestStatic(server.URL).Lookup(context.Background(), schedule.Query{StreetNumber: "1", Postcode: "AB10 1AB"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if n := utf8.RuneCountInString(sched.PageText); n != rawTextLimit || !utf8.ValidString(sched.PageText) {
		t.Errorf("Expected %d whole characters, got %d", rawTextLimit, n)
	}
	out := logs.String()
	if !strings.Contains(out, "No collections found in the response") || !strings.Contains(out, "postcode=\"AB10 1AB\"") {
		t.Errorf("Expected a warning carrying the query, got %q", out)
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	page, err := newTestStatic(server.URL).Fetch(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.StatusCode != http.StatusOK || page.URL.Path != "/anything" {
		t.Errorf("Unexpected page %+v", page)
	}
}
