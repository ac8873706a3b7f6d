package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/notekeeper/internal/config"
)

func TestNewHTTPServer_Timeouts(t *testing.T) {
	cfg := config.Config{
		Addr:         ":0",
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 4 * time.Second,
		IdleTimeout:  5 * time.Second,
	}
	srv := newHTTPServer(cfg, http.NotFoundHandler(), zaptest.NewLogger(t))

	require.Equal(t, ":0", srv.Addr)
	require.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
	require.Equal(t, 3*time.Second, srv.ReadTimeout)
	require.Equal(t, 4*time.Second, srv.WriteTimeout)
	require.Equal(t, 5*time.Second, srv.IdleTimeout)
	require.NotNil(t, srv.ErrorLog)
}
