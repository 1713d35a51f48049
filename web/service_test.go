package web

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/gw-multids/svc"
)

func TestServiceLifecycle(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		EncodeWriteJSON(w, http.StatusOK, Message{Type: "info", Message: "pong"})
	})
	s := NewService(context.Background(), "127.0.0.1:0", handler, time.Second, log.New(io.Discard))
	assert.Equal(t, svc.StateReady, s.State())
	require.NoError(t, s.Start())
	assert.Equal(t, svc.StateRunning, s.State())
	assert.Error(t, s.Start(), "already running")

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pong")

	s.Stop()
	select {
	case err := <-s.Done():
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.Equal(t, svc.StateStopped, s.State())
}

func TestServiceStopsWithParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewService(ctx, "127.0.0.1:0", http.NotFoundHandler(), time.Second, nil)
	require.NoError(t, s.Start())
	cancel()
	select {
	case err := <-s.Done():
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestServiceBindError(t *testing.T) {
	s := NewService(context.Background(), "256.0.0.1:99999", http.NotFoundHandler(), time.Second, nil)
	assert.Error(t, s.Start())
	assert.Equal(t, svc.StateStopped, s.State())
}
