package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServeHTTPStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, srv, time.Second, zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestServeHTTPReportsListenFailure(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:-1"}

	err := serveHTTP(context.Background(), srv, time.Second, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "serve http")
}

func TestLoadApplicationConfigAcceptsFileOrDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9123\n"), 0o600))

	fromDir, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9123, fromDir.Server.Port)

	fromFile, err := loadApplicationConfig(file)
	require.NoError(t, err)
	require.Equal(t, 9123, fromFile.Server.Port)
}
