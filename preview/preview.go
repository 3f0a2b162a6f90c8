// Package preview serves a live view of the pixel array over WebSocket so
// the strip can be watched from a browser while the hardware is remote or
// absent.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pixeldrive/pixel"
)

// writeTimeout bounds every client write. Publish runs on the controller's
// flush path, so a client that stops reading must be dropped, not waited on.
const writeTimeout = 200 * time.Millisecond

// Server broadcasts flushed frames to connected clients. The controller
// publishes a snapshot after every transmitted frame.
type Server struct {
	mu      sync.Mutex
	n       int
	rgb     []byte
	frameID uint64
	start   time.Time
	clients map[*websocket.Conn]bool
	log     zerolog.Logger
}

// NewServer creates a preview for an array of n pixels.
func NewServer(n int, logger zerolog.Logger) *Server {
	return &Server{
		n:       n,
		rgb:     make([]byte, n*3),
		start:   time.Now(),
		clients: map[*websocket.Conn]bool{},
		log:     logger,
	}
}

// Routes returns the preview HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", s.handleFrames)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Publish updates the mirrored frame and broadcasts it as a binary RGB
// triple buffer to every client.
func (s *Server) Publish(updates []pixel.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		if int(u.Index) >= s.n {
			continue
		}
		off := int(u.Index) * 3
		s.rgb[off+0] = u.Color.R
		s.rgb[off+1] = u.Color.G
		s.rgb[off+2] = u.Color.B
	}
	s.frameID++

	buf := append([]byte{}, s.rgb...)
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
			delete(s.clients, conn)
			conn.Close()
		}
	}
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Topology first so the client can size its view. Registration happens
	// under the same lock, so a concurrent Publish cannot interleave with
	// this write.
	s.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	topo := map[string]any{"type": "topology", "count": s.n}
	if err := conn.WriteJSON(topo); err != nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[conn] = true
	s.mu.Unlock()
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("preview client connected")

	// Reap the client when its read side closes.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.start).Seconds(),
		"count":    s.n,
		"clients":  len(s.clients),
	}
	s.mu.Unlock()
	_ = json.NewEncoder(w).Encode(resp)
}
