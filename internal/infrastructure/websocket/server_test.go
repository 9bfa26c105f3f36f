package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// feedServer is a mock top-wallets feed. It records every frame a client
// sends and lets tests push payloads to the latest connection.
type feedServer struct {
	*httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	frames   []string
	accepted int
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()

		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.accepted++
		fs.mu.Unlock()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fs.mu.Lock()
			fs.frames = append(fs.frames, string(msg))
			fs.mu.Unlock()
		}
	}))
	return fs
}

func (fs *feedServer) url(path string) string {
	return "ws" + strings.TrimPrefix(fs.URL, "http") + path
}

func (fs *feedServer) acceptedCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.accepted
}

func (fs *feedServer) receivedFrames() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, len(fs.frames))
	copy(out, fs.frames)
	return out
}

func (fs *feedServer) latest() *websocket.Conn {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.conns) == 0 {
		return nil
	}
	return fs.conns[len(fs.conns)-1]
}

// push writes payload to the most recent client connection.
func (fs *feedServer) push(t *testing.T, payload string) {
	t.Helper()
	conn := fs.latest()
	if conn == nil {
		t.Fatal("no client connected")
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("push failed: %v", err)
	}
}

// drop closes the most recent client connection with a normal close frame.
func (fs *feedServer) drop(t *testing.T) {
	t.Helper()
	conn := fs.latest()
	if conn == nil {
		t.Fatal("no client connected")
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()
}

// abort closes the TCP connection of the most recent client without a close
// frame, so the client sees an abnormal closure.
func (fs *feedServer) abort(t *testing.T) {
	t.Helper()
	conn := fs.latest()
	if conn == nil {
		t.Fatal("no client connected")
	}
	_ = conn.UnderlyingConn().Close()
}
