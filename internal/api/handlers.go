package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/banshee-data/assembly.report/internal/analysis"
	"github.com/banshee-data/assembly.report/internal/db"
	"github.com/banshee-data/assembly.report/internal/events"
	"github.com/banshee-data/assembly.report/internal/httputil"
	"github.com/banshee-data/assembly.report/internal/monitoring"
)

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	sessions, err := s.db.ListSessions()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	session, err := s.db.GetSession(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, session)
}

func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	l, err := s.db.SessionLog(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, l)
}

func (s *Server) sessionReport(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	l, err := s.db.SessionLog(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, analysis.Analyze(l))
}

// sessionConfig returns the tuning the session was detected with, verbatim.
func (s *Server) sessionConfig(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	session, err := s.db.GetSession(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(session.ConfigJSON))
}

func (s *Server) timelineChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := r.PathValue("id")
	l, err := s.db.SessionLog(id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := analysis.WriteTimelineHTML(&buf, l, "Session "+id); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) durationChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := r.PathValue("id")
	l, err := s.db.SessionLog(id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := analysis.WriteDurationPNG(&buf, analysis.Analyze(l), "Operation durations"); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrSessionNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, events.ErrMalformedLog):
		monitoring.Logf("malformed session log: %v", err)
		httputil.InternalServerError(w, err.Error())
	default:
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load session: %v", err))
	}
}
