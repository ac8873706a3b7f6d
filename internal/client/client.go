// Package client is a Go client for the notes HTTP API.
// The bearer token is passed per call; a Client holds no session state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%d %s: %s (request %s)", e.Status, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// User is the public account summary.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Session is returned by Register and Login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Note mirrors the server's note representation.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Registration is the register request body.
type Registration struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Credentials is the login request body; fill the field the server logs in by.
type Credentials struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// NotePatch carries the fields to change; nil fields are omitted.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Client talks to one API base URL, e.g. "http://localhost:8080/api".
type Client struct {
	base string
	hc   *http.Client
}

// New returns a client for base. A nil hc uses a client with a 30s timeout.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), hc: hc}
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var eb struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"requestId"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb) == nil {
			apiErr.Code, apiErr.Message = eb.Code, eb.Message
			if eb.RequestID != "" {
				apiErr.RequestID = eb.RequestID
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, in Registration) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/register", "", in, &s)
	return s, err
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, in Credentials) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/login", "", in, &s)
	return s, err
}

// Logout tells the server the token is being discarded.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/logout", token, nil, nil)
}

// Profile returns the caller's account.
func (c *Client) Profile(ctx context.Context, token string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/profile", token, nil, &u)
	return u, err
}

// ListNotes returns the caller's notes, newest first.
func (c *Client) ListNotes(ctx context.Context, token string) ([]Note, error) {
	var ns []Note
	err := c.do(ctx, http.MethodGet, "/notes", token, nil, &ns)
	return ns, err
}

// GetNote returns one note.
func (c *Client) GetNote(ctx context.Context, token, id string) (Note, error) {
	var n Note
	err := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id), token, nil, &n)
	return n, err
}

// CreateNote stores a new note.
func (c *Client) CreateNote(ctx context.Context, token, title, content string) (Note, error) {
	var n Note
	err := c.do(ctx, http.MethodPost, "/notes", token, map[string]string{"title": title, "content": content}, &n)
	return n, err
}

// UpdateNote changes the supplied fields.
func (c *Client) UpdateNote(ctx context.Context, token, id string, p NotePatch) (Note, error) {
	var n Note
	err := c.do(ctx, http.MethodPut, "/notes/"+url.PathEscape(id), token, p, &n)
	return n, err
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), token, nil, nil)
}

// Health reports whether the server and its store are up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}
