// Package httpserver exposes the notes API over HTTP/JSON.
package httpserver

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/service"
)

// Pinger reports store reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune routing and request parsing.
type Options struct {
	Prefix      string           // mount point, e.g. "/api"; empty mounts at root
	CORSOrigins []string         // allowed browser origins
	LoginField  model.LoginField // which body field identifies the account at login
}

// Server holds handler dependencies. Safe for concurrent use.
type Server struct {
	auth  service.AuthService
	notes service.NoteService
	db    Pinger
	log   *zap.Logger
	opts  Options
}

// New constructs the HTTP API.
func New(auth service.AuthService, notes service.NoteService, db Pinger, log *zap.Logger, opts Options) *Server {
	if opts.LoginField == "" {
		opts.LoginField = model.LoginByEmail
	}
	return &Server{auth: auth, notes: notes, db: db, log: log, opts: opts}
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts an error-returning handler; failures go through writeError.
func (s *Server) handle(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, s.log, err)
		}
	})
}

// Handler returns the routed API wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	p := s.opts.Prefix
	guard := RequireAuth(s.auth, s.log)

	mux.Handle("GET "+p+"/health", http.HandlerFunc(s.health))

	mux.Handle("POST "+p+"/register", s.handle(s.register))
	mux.Handle("POST "+p+"/login", s.handle(s.login))
	mux.Handle("POST "+p+"/logout", guard(s.handle(s.logout)))
	mux.Handle("GET "+p+"/profile", guard(s.handle(s.profile)))

	mux.Handle("GET "+p+"/notes", guard(s.handle(s.listNotes)))
	mux.Handle("POST "+p+"/notes", guard(s.handle(s.createNote)))
	mux.Handle("GET "+p+"/notes/{id}", guard(s.handle(s.getNote)))
	mux.Handle("PUT "+p+"/notes/{id}", guard(s.handle(s.updateNote)))
	mux.Handle("DELETE "+p+"/notes/{id}", guard(s.handle(s.deleteNote)))

	// Username deployments also answer on the legacy route names of that variant.
	if s.opts.LoginField == model.LoginByUsername {
		mux.Handle("DELETE "+p+"/logout", guard(s.handle(s.logout)))
		mux.Handle("POST "+p+"/add-note", guard(s.handle(s.createNote)))
		mux.Handle("PUT "+p+"/update-note/{id}", guard(s.handle(s.updateNote)))
		mux.Handle("DELETE "+p+"/delete-note/{id}", guard(s.handle(s.deleteNote)))
	}

	mux.Handle("/", s.handle(func(http.ResponseWriter, *http.Request) error {
		return errRouteNotFound
	}))

	var h http.Handler = mux
	h = CORS(s.opts.CORSOrigins)(h)
	h = Recover(s.log)(h)
	h = AccessLog(s.log)(h)
	h = RequestID(h)
	return h
}
