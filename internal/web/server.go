// Package web provides an HTTP status and control server for the encoder daemon.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/sweeney/eqep-encoder/internal/eqep"
	"github.com/sweeney/eqep-encoder/internal/status"
)

// Controller is the subset of encoder operations exposed over HTTP.
type Controller interface {
	// Zero clears the count. The poll loop treats any zero as a new reference.
	Zero() error
	Enable() error
	Disable() error
	SetMode(m eqep.Mode) error
	SetFrequency(hz float64) error
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctrl       Controller
}

// New creates a Server that reads state from the given tracker. If ctrl is
// nil the control endpoints are not registered.
func New(addr string, tracker *status.Tracker, ctrl Controller) *Server {
	s := &Server{tracker: tracker, ctrl: ctrl}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if ctrl != nil {
		mux.HandleFunc("/zero", s.post(func(*http.Request) error { return s.ctrl.Zero() }))
		mux.HandleFunc("/enable", s.post(func(*http.Request) error { return s.ctrl.Enable() }))
		mux.HandleFunc("/disable", s.post(func(*http.Request) error { return s.ctrl.Disable() }))
		mux.HandleFunc("/mode", s.post(s.setMode))
		mux.HandleFunc("/frequency", s.post(s.setFrequency))
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.ctrl != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// post wraps a control operation: POST only, 204 on success, 400 for
// rejected arguments, 500 for hardware failures.
func (s *Server) post(op func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := op(r); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, eqep.ErrInvalidArgument) {
				code = http.StatusBadRequest
			}
			http.Error(w, err.Error(), code)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) setMode(r *http.Request) error {
	m, err := eqep.ParseMode(r.FormValue("value"))
	if err != nil {
		return err
	}
	return s.ctrl.SetMode(m)
}

func (s *Server) setFrequency(r *http.Request) error {
	hz, err := strconv.ParseFloat(r.FormValue("hz"), 64)
	if err != nil {
		return errors.Join(eqep.ErrInvalidArgument, err)
	}
	return s.ctrl.SetFrequency(hz)
}
