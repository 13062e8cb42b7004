package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"binday/internal/browser"
)

type fakeSession struct {
	html   string
	err    error
	cfg    browser.Config
	closed int
}

func (f *fakeSession) Capture(context.Context) (string, error) { return f.html, f.err }
func (f *fakeSession) Close()                                  { f.closed++ }

func stubSession(t *testing.T, sess *fakeSession) {
	t.Helper()
	orig := startSession
	t.Cleanup(func() { startSession = orig })
	startSession = func(_ context.Context, cfg browser.Config) (capturer, error) {
		sess.cfg = cfg
		return sess, nil
	}
}

func TestRunWritesFixture(t *testing.T) {
	sess := &fakeSession{html: "<html><body><form></form></body></html>"}
	stubSession(t, sess)
	out := filepath.Join(t.TempDir(), "frame.html")

	if code := run([]string{"--out", out, "--url", "http://127.0.0.1:1/calendar", "--headless=false"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	got, err := os.ReadFile(out)
	if err != nil || string(got) != sess.html {
		t.Errorf("Expected the captured markup in %s, got %q, %v", out, got, err)
	}
	if sess.cfg.ServiceURL != "http://127.0.0.1:1/calendar" || sess.cfg.Headless {
		t.Errorf("Flags not applied to the session config: %+v", sess.cfg)
	}
	if sess.closed != 1 {
		t.Errorf("Expected the session to be closed once, got %d", sess.closed)
	}
}

func TestRunClosesSessionOnFailure(t *testing.T) {
	testCases := []struct {
		name string
		sess *fakeSession
		out  string
	}{
		{"capture fails", &fakeSession{err: errors.New("frame not found")}, "frame.html"},
		{"write fails", &fakeSession{html: "<html></html>"}, filepath.Join("missing", "frame.html")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stubSession(t, tc.sess)
			out := filepath.Join(t.TempDir(), tc.out)

			if code := run([]string{"--out", out}); code != 1 {
				t.Errorf("Expected exit code 1, got %d", code)
			}
			if tc.sess.closed != 1 {
				t.Errorf("Expected the session to be closed before exiting, got %d", tc.sess.closed)
			}
		})
	}
}

func TestRunStartFailure(t *testing.T) {
	orig := startSession
	t.Cleanup(func() { startSession = orig })
	startSession = func(context.Context, browser.Config) (capturer, error) {
		return nil, errors.New("chrome not found")
	}

	if code := run(nil); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
}

func TestRunBadFlag(t *testing.T) {
	if code := run([]string{"--nope"}); code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
}
