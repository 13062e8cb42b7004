package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"binday/internal/schedule"
)

const calendarPage = `<html><body>
<form id="calendar" action="/lookup" method="post">
	<input type="text" name="postcode">
	<input type="text" name="house_number">
</form>
<iframe id="fillform-frame-1" src="/fillform/"></iframe>
</body></html>`

func TestInspectPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(calendarPage))
	}))
	defer srv.Close()

	save := filepath.Join(t.TempDir(), "page.html")

	var out, errOut bytes.Buffer
	cmd := newCmd(&out, &errOut)
	cmd.SetArgs([]string{"--url", srv.URL, "--save", save})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("inspect-form failed: %v", err)
	}

	report := out.String()
	for _, want := range []string{"Fetching: " + srv.URL, "Status: 200", "Found 1 form(s)", "Action: /lookup", "house_number", "Found 1 iframe(s)"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected %q in report:\n%s", want, report)
		}
	}

	saved, err := os.ReadFile(save)
	if err != nil {
		t.Fatalf("Expected the page to be saved: %v", err)
	}
	if string(saved) != calendarPage {
		t.Errorf("Saved page differs from the served page")
	}
}

func TestInspectPageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var out, errOut bytes.Buffer
	cmd := newCmd(&out, &errOut)
	cmd.SetArgs([]string{"--url", srv.URL})
	err := cmd.ExecuteContext(context.Background())
	if !errors.Is(err, schedule.ErrNetwork) {
		t.Errorf("Expected a network error, got %v", err)
	}
}
