package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

type fakeAuthenticator struct {
	valid string
	id    model.Identity
	err   error
}

func (f fakeAuthenticator) Authenticate(_ context.Context, raw string) (model.Identity, error) {
	if f.err != nil {
		return model.Identity{}, f.err
	}
	if raw != f.valid {
		return model.Identity{}, errs.ErrUnauthorized
	}
	return f.id, nil
}

func TestRequireAuth_UniformRejection(t *testing.T) {
	t.Parallel()

	uid := uuid.Must(uuid.NewV4())
	guard := RequireAuth(fakeAuthenticator{valid: "good", id: model.Identity{UserID: uid}}, zaptest.NewLogger(t))
	reached := false
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		id, ok := IdentityFromCtx(r.Context())
		require.True(t, ok)
		require.Equal(t, uid, id.UserID)
		w.WriteHeader(http.StatusNoContent)
	}))

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic good",
		"no token":     "Bearer ",
		"bad token":    "Bearer nope",
		"no space":     "Bearergood",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/notes", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, ErrorResponse{Code: "UNAUTHORIZED", Message: "unauthorized"}, body)
		})
	}
	require.False(t, reached)

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, reached)
}

func TestRequireAuth_StoreFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	guard := RequireAuth(fakeAuthenticator{valid: "good", err: errors.New("check user: db down")}, zap.New(core))
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, CodeInternal, body.Code)
	require.NotContains(t, body.Message, "db down")
	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromCtx(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", seen)
	require.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRecover_Returns500(t *testing.T) {
	t.Parallel()

	h := RequestID(Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, CodeInternal, body.Code)
	require.Equal(t, rec.Header().Get(RequestIDHeader), body.RequestID)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestCORS(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"http://localhost:3000"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	CORS(nil)(next).ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWriteError_Mapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{errs.Invalid("title", "is required"), http.StatusBadRequest, CodeValidation, "title: is required"},
		{errs.ErrValidation, http.StatusBadRequest, CodeValidation, "validation failed"},
		{errs.ErrAlreadyExists, http.StatusBadRequest, CodeValidation, "already exists"},
		{errs.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized, "unauthorized"},
		{errs.ErrBadCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials"},
		{errs.ErrNotFound, http.StatusNotFound, CodeNotFound, "not found"},
		{errs.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, "too many failed login attempts, try again later"},
		{errors.New("pq: connection refused at 10.0.0.5"), http.StatusInternalServerError, CodeInternal, "internal error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), zaptest.NewLogger(t), tc.err)

		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.code, body.Code)
		require.Equal(t, tc.msg, body.Message)
	}
}
