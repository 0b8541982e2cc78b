package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"neweyes-online/internal/config"
)

const (
	adminID   = "0b9f4a52-6a0e-4c1e-9d65-7f2d0f1f9a01"
	playerID  = "5c3e2f10-1d4b-4f7a-8e2c-9a6b7c8d9e02"
	player2ID = "7d8e9f00-2a3b-4c5d-8e6f-1a2b3c4d5e03"
	userID    = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f2a3b4c04"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.AuthJWTSecret = "test-secret"
	cfg.AdminUserIDs = []string{adminID}
	cfg.StorageLocalRoot = t.TempDir()
	return cfg
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func issueToken(t *testing.T, srv *Server, id, name string) string {
	t.Helper()
	token, err := srv.Verifier().Issue(id, name, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
