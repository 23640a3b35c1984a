// Package testutil provides shared test helpers for the HTTP and CLI tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/banshee-data/assembly.report/internal/db"
	"github.com/banshee-data/assembly.report/internal/events"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewSessionDB opens a migrated session store in a temp dir that is closed
// when the test ends.
func NewSessionDB(t testing.TB) *db.DB {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// SeedSession creates a finished session holding records.
func SeedSession(t testing.TB, d *db.DB, source string, records []events.Record) *db.Session {
	t.Helper()
	s, err := d.CreateSession(source, 30, "")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := d.RecordEvents(s.ID, records); err != nil {
		t.Fatalf("failed to record events: %v", err)
	}
	if err := d.FinishSession(s.ID, 300); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}
	s, err = d.GetSession(s.ID)
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	return s
}
