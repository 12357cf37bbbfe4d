package ducts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// fakeServer serves a wsd descriptor plus a websocket endpoint whose behavior
// is supplied per test.
func fakeServer(t *testing.T, events map[string]int64, handle func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ducts/wsd", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"websocket_url": "/ducts/ws",
			"event_id":      events,
		}))
	})
	mux.HandleFunc("/ducts/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()
		handle(conn)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeFrameTo(t *testing.T, conn *websocket.Conn, rid, eid int64, payload map[string]any) {
	t.Helper()

	frame, err := msgpack.Marshal([]any{rid, eid, payload})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))
}

func TestOpenFailsSynchronouslyWhenDescriptorUnreachable(t *testing.T) {
	t.Parallel()

	client := NewClient()
	client.RequestTimeout = 200 * time.Millisecond

	err := client.Open(context.Background(), "http://127.0.0.1:1/ducts/wsd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duct descriptor")
}

func TestCallResolvesMatchingRequestID(t *testing.T) {
	t.Parallel()

	events := map[string]int64{"SIGN_IN": 11}
	server := fakeServer(t, events, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		rid, eid, payload, err := decodeFrame(data)
		require.NoError(t, err)
		assert.Equal(t, int64(11), eid)
		assert.Equal(t, "requester1", payload["user_id"])

		// An unrelated reply first; the client must not resolve on it.
		writeFrameTo(t, conn, rid+100, eid, map[string]any{"body": "wrong"})
		writeFrameTo(t, conn, rid, eid, map[string]any{"body": "right"})

		// Keep the connection up until the test is done reading.
		_, _, _ = conn.ReadMessage()
	})

	client := NewClient()
	require.NoError(t, client.Open(context.Background(), server.URL+"/ducts/wsd"))
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := client.Call(ctx, "SIGN_IN", map[string]any{"user_id": "requester1"})
	require.NoError(t, err)
	assert.Equal(t, "right", reply["body"])
}

func TestCallRejectsUnknownEvent(t *testing.T) {
	t.Parallel()

	server := fakeServer(t, map[string]int64{"SIGN_IN": 11}, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})

	client := NewClient()
	require.NoError(t, client.Open(context.Background(), server.URL+"/ducts/wsd"))
	t.Cleanup(func() { _ = client.Close() })

	_, err := client.Call(context.Background(), "NO_SUCH_EVENT", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown duct event")
}

func TestPushReachesSubscribedHandler(t *testing.T) {
	t.Parallel()

	events := map[string]int64{"WATCH": 42}
	server := fakeServer(t, events, func(conn *websocket.Conn) {
		writeFrameTo(t, conn, 0, 42, map[string]any{"last_watch_id": "1700000000000-0"})
		_, _, _ = conn.ReadMessage()
	})

	received := make(chan map[string]any, 1)

	client := NewClient()
	client.Subscribe("WATCH", func(payload map[string]any) { received <- payload })
	require.NoError(t, client.Open(context.Background(), server.URL+"/ducts/wsd"))
	t.Cleanup(func() { _ = client.Close() })

	select {
	case payload := <-received:
		assert.Equal(t, "1700000000000-0", payload["last_watch_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("push never reached handler")
	}
}

func TestResubscribeReplacesHandler(t *testing.T) {
	t.Parallel()

	events := map[string]int64{"WATCH": 42}
	ready := make(chan struct{})
	server := fakeServer(t, events, func(conn *websocket.Conn) {
		<-ready
		writeFrameTo(t, conn, 0, 42, map[string]any{"n": int64(1)})
		_, _, _ = conn.ReadMessage()
	})

	first := make(chan map[string]any, 1)
	second := make(chan map[string]any, 1)

	client := NewClient()
	client.Subscribe("WATCH", func(payload map[string]any) { first <- payload })
	client.Subscribe("WATCH", func(payload map[string]any) { second <- payload })
	require.NoError(t, client.Open(context.Background(), server.URL+"/ducts/wsd"))
	t.Cleanup(func() { _ = client.Close() })
	close(ready)

	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("push never reached replacement handler")
	}
	select {
	case <-first:
		t.Fatal("replaced handler still received the push")
	default:
	}
}

func TestErrorListenerFiresOnConnectionDrop(t *testing.T) {
	t.Parallel()

	server := fakeServer(t, map[string]int64{}, func(conn *websocket.Conn) {
		_ = conn.Close()
	})

	errs := make(chan error, 1)

	client := NewClient()
	client.SetErrorListener(func(err error) { errs <- err })
	require.NoError(t, client.Open(context.Background(), server.URL+"/ducts/wsd"))

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("error listener never fired")
	}
}

func TestResolveWebSocketURLMapsSchemes(t *testing.T) {
	t.Parallel()

	resolved, err := resolveWebSocketURL("https://example.com/ducts/wsd", "/ducts/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/ducts/ws", resolved)

	resolved, err = resolveWebSocketURL("http://example.com/ducts/wsd", "http://example.com/ducts/ws")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resolved, "ws://"))

	_, err = resolveWebSocketURL("https://example.com/ducts/wsd", "ftp://example.com/x")
	require.Error(t, err)
}
