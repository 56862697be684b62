package liveapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	m := metrics.New()
	m.FrameDecoded("conso")
	srv := httptest.NewServer(NewRouter(hub, "test", m.Registry))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readLive(t *testing.T, conn *websocket.Conn) *types.LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg := types.LiveMessageFromJsonBytes(data)
	require.NotNil(t, msg, string(data))
	return msg
}

func TestStatus(t *testing.T) {
	_, srv := newServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestLatestKeepsRetainedMessages(t *testing.T) {
	hub, srv := newServer(t)

	resp, err := http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, hub.Publish("TeleInfo/values/PTEC", []byte("HP.."), true))
	require.NoError(t, hub.Publish("TeleInfo/values/PTEC", []byte("HC.."), true))
	require.NoError(t, hub.Publish("TeleInfo/values/PAPP", []byte("1234"), false))

	resp, err = http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var latest map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
	assert.Equal(t, map[string]string{"TeleInfo/values/PTEC": "HC.."}, latest)
}

func TestWebSocketBroadcast(t *testing.T) {
	hub, srv := newServer(t)
	require.NoError(t, hub.Publish("TeleInfo/summary", []byte(`{"PAPP":1}`), true))

	conn := dial(t, srv)

	// retained messages are replayed on connect
	first := readLive(t, conn)
	assert.Equal(t, "TeleInfo/summary", first.Topic)
	assert.True(t, first.Retained)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Publish("TeleInfo/values/PAPP", []byte("1234"), false))

	msg := readLive(t, conn)
	assert.Equal(t, "TeleInfo/values/PAPP", msg.Topic)
	assert.Equal(t, "1234", msg.Payload)
	assert.False(t, msg.Retained)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMetricsRoute(t *testing.T) {
	_, srv := newServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `teleinfod_frames_total{section="conso"} 1`)
}

func TestMetricsRouteIsOptional(t *testing.T) {
	srv := httptest.NewServer(NewRouter(NewHub(), "test", nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListener(t *testing.T) {
	hub, srv := newServer(t)
	host := strings.TrimPrefix(srv.URL, "http://")

	received := make(chan *types.LiveMessage, 4)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		StartListener(ctx, host, func(msg *types.LiveMessage) { received <- msg })
		close(stopped)
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Publish("TeleInfo/values/HCHC", []byte("15"), false))

	select {
	case msg := <-received:
		assert.Equal(t, "TeleInfo/values/HCHC", msg.Topic)
		assert.Equal(t, "15", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", NewRouter(NewHub(), "test", nil)) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}
