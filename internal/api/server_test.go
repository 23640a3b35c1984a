package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/assembly.report/internal/analysis"
	"github.com/banshee-data/assembly.report/internal/db"
	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/monitoring"
	"github.com/banshee-data/assembly.report/internal/testutil"
)

// oneOperation is a single probed and marked operation lasting 2.5 s.
var oneOperation = []events.Record{
	{Kind: events.PickUp, Timestamp: 1.0},
	{Kind: events.ProbePass, Timestamp: 1.6},
	{Kind: events.Marking, Timestamp: 2.4},
	{Kind: events.PlaceInBox, Timestamp: 3.5},
}

const unknownID = "00000000-0000-0000-0000-000000000000"

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	d := cloneAPITestDB(t)
	return NewServer(d), d
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, testutil.NewTestRequest(method, path))
	return w
}

func TestListSessions(t *testing.T) {
	server, d := setupTestServer(t)

	w := serve(server, http.MethodGet, "/api/sessions")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.JSONEq(t, `[]`, w.Body.String())

	s := testutil.SeedSession(t, d, "station-1", oneOperation)

	w = serve(server, http.MethodGet, "/api/sessions")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var got []db.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, s.ID, got[0].ID)
	assert.Equal(t, "station-1", got[0].Source)
	assert.Equal(t, 1, got[0].EventCounts["marking"])
}

func TestShowSession(t *testing.T) {
	server, d := setupTestServer(t)
	s := testutil.SeedSession(t, d, "station-2", oneOperation)

	w := serve(server, http.MethodGet, "/api/sessions/"+s.ID)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var got db.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, s.ID, got.ID)
	assert.True(t, got.Finished())
}

func TestSessionEvents(t *testing.T) {
	server, d := setupTestServer(t)
	s := testutil.SeedSession(t, d, "station-1", oneOperation)

	w := serve(server, http.MethodGet, "/api/sessions/"+s.ID+"/events")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.JSONEq(t, `{"pick_up":[1.0],"probe_pass":[1.6],"marking":[2.4],"place_in_box":[3.5]}`, w.Body.String())
}

func TestSessionReport(t *testing.T) {
	server, d := setupTestServer(t)
	s := testutil.SeedSession(t, d, "station-1", oneOperation)

	w := serve(server, http.MethodGet, "/api/sessions/"+s.ID+"/report")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var got analysis.Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Equal(t, 1, got.Total())
	assert.InDelta(t, 2.5, got.AverageDuration, 1e-9)
	assert.Equal(t, 1, got.WithProbe)
	assert.Equal(t, 1, got.WithMarking)
	assert.InDelta(t, 100.0, got.ProbePercent, 1e-9)
}

func TestSessionConfig(t *testing.T) {
	server, d := setupTestServer(t)
	s, err := d.CreateSession("station-1", 25, `{"fps":25,"window_size":3}`)
	require.NoError(t, err)

	w := serve(server, http.MethodGet, "/api/sessions/"+s.ID+"/config")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.JSONEq(t, `{"fps":25,"window_size":3}`, w.Body.String())
}

func TestCharts(t *testing.T) {
	server, d := setupTestServer(t)
	s := testutil.SeedSession(t, d, "station-1", oneOperation)

	w := serve(server, http.MethodGet, "/charts/"+s.ID)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "place_in_box")

	w = serve(server, http.MethodGet, "/charts/"+s.ID+"/durations.png")
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	assert.NoError(t, err)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, path := range []string{
		"/api/sessions/" + unknownID,
		"/api/sessions/" + unknownID + "/events",
		"/api/sessions/" + unknownID + "/report",
		"/api/sessions/" + unknownID + "/config",
		"/charts/" + unknownID,
		"/charts/" + unknownID + "/durations.png",
	} {
		t.Run(path, func(t *testing.T) {
			w := serve(server, http.MethodGet, path)
			testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
			assert.Contains(t, w.Body.String(), "session not found")
		})
	}
}

func TestMalformedStoredLog(t *testing.T) {
	server, d := setupTestServer(t)
	s := testutil.SeedSession(t, d, "station-1", []events.Record{
		{Kind: events.PickUp, Timestamp: 5},
		{Kind: events.PickUp, Timestamp: 3},
	})

	w := serve(server, http.MethodGet, "/api/sessions/"+s.ID+"/report")
	testutil.AssertStatusCode(t, w.Code, http.StatusInternalServerError)
	assert.Contains(t, w.Body.String(), "malformed")
}

func TestRoutesAreReadOnly(t *testing.T) {
	server, d := setupTestServer(t)
	s := testutil.SeedSession(t, d, "station-1", oneOperation)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		for _, path := range []string{"/api/sessions", "/api/sessions/" + s.ID, "/api/sessions/" + s.ID + "/report", "/charts/" + s.ID} {
			w := serve(server, method, path)
			testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
		}
	}

	_, err := d.GetSession(s.ID)
	assert.NoError(t, err)
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{302, colorYellow + "302" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{500, colorBoldRed + "500" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCodeColor(tt.code), "code %d", tt.code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/sessions?limit=1"))

	assert.Equal(t, http.StatusTeapot, w.Code)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "418")
	assert.Contains(t, lines[0], "GET")
	assert.Contains(t, lines[0], "/api/sessions?limit=1")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	server, _ := setupTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/sessions")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
