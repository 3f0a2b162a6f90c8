package preview

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixeldrive/pixel"
)

func dialFrames(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestFramesClientGetsTopologyThenFrames(t *testing.T) {
	s := NewServer(4, zerolog.Nop())
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	conn := dialFrames(t, ts)
	defer conn.Close()

	// Topology first.
	var topo map[string]any
	require.NoError(t, conn.ReadJSON(&topo))
	assert.Equal(t, "topology", topo["type"])
	assert.Equal(t, float64(4), topo["count"])

	// Publish a frame; the client receives the mirrored RGB buffer.
	s.Publish([]pixel.Update{
		{Index: 1, Color: pixel.Color{R: 10, G: 20, B: 30}},
		{Index: 9, Color: pixel.Color{R: 1}}, // out of range, ignored
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	require.Len(t, data, 4*3)
	assert.Equal(t, []byte{10, 20, 30}, data[3:6])
	assert.Equal(t, []byte{0, 0, 0}, data[0:3])
}

// A client that stops reading must not stall Publish: once its buffers fill,
// the write deadline expires and the client is dropped.
func TestPublishDropsStalledClient(t *testing.T) {
	s := NewServer(1024, zerolog.Nop())
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	conn := dialFrames(t, ts)
	defer conn.Close()
	// The client never reads after this; the server keeps publishing.
	var topo map[string]any
	require.NoError(t, conn.ReadJSON(&topo))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			s.Publish([]pixel.Update{{Index: uint16(i % 1024), Color: pixel.Color{R: 1}}})
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Publish blocked on a client that stopped reading")
	}

	s.mu.Lock()
	clients := len(s.clients)
	s.mu.Unlock()
	assert.Zero(t, clients, "stalled client was not dropped")
}

func TestPublishWithNoClients(t *testing.T) {
	s := NewServer(2, zerolog.Nop())
	// Must not panic or block.
	s.Publish([]pixel.Update{{Index: 0, Color: pixel.Color{R: 1}}})
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(3, zerolog.Nop())
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	s.Publish(nil)
	s.Publish(nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(2), body["frame_id"])
	assert.Equal(t, float64(3), body["count"])
}
