package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

var errRouteNotFound = fmt.Errorf("route: %w", errs.ErrNotFound)

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type noteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// UserResponse is the public user summary; credentials never leave the server.
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// NoteResponse is the wire form of a note.
type NoteResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUser(u model.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Name: u.Name, Username: u.Username, Email: u.Email}
}

func toNote(n model.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID.String(),
		Title:     n.Title,
		Content:   n.Content,
		UserID:    n.UserID.String(),
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	}
}

func toSession(sess model.Session) AuthResponse {
	return AuthResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt.UTC(), User: toUser(sess.User)}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Invalid("", "invalid request body")
	}
	return nil
}

func identity(r *http.Request) (model.Identity, error) {
	id, ok := IdentityFromCtx(r.Context())
	if !ok {
		return model.Identity{}, errs.ErrUnauthorized
	}
	return id, nil
}

// clientIP is the peer address; forwarding headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("health: store unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	sess, err := s.auth.Register(r.Context(), model.Registration{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toSession(sess))
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	login := req.Email
	if s.opts.LoginField == model.LoginByUsername {
		login = req.Username
	}
	sess, err := s.auth.LoginWithIP(r.Context(), login, req.Password, clientIP(r))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toSession(sess))
	return nil
}

// logout only acknowledges; tokens are stateless and the client drops its copy.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
	if _, err := identity(r); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out successfully"})
	return nil
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	u, err := s.auth.Profile(r.Context(), id.UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toUser(*u))
	return nil
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	notes, err := s.notes.ListOwned(r.Context(), id)
	if err != nil {
		return err
	}
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNote(n))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	var title, content string
	if req.Title != nil {
		title = *req.Title
	}
	if req.Content != nil {
		content = *req.Content
	}
	n, err := s.notes.Create(r.Context(), id, title, content)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toNote(*n))
	return nil
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	n, err := s.notes.GetOwned(r.Context(), id, r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toNote(*n))
	return nil
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	n, err := s.notes.UpdateOwned(r.Context(), id, r.PathValue("id"), model.NotePatch{Title: req.Title, Content: req.Content})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toNote(*n))
	return nil
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	if err := s.notes.DeleteOwned(r.Context(), id, r.PathValue("id")); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "note deleted successfully"})
	return nil
}
