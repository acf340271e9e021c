// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"levels/internal/level"
	applog "levels/internal/log"
)

// WebSocketPath is where clients subscribe to the frame feed.
const WebSocketPath = "/levels"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// WebSocketTransport broadcasts every frame as a JSON Message to all
// connected WebSocket clients.
//
// Thread Safety:
// - Send never blocks; frames are dropped when the broadcast queue is full
// - Client map is protected by a mutex
type WebSocketTransport struct {
	addr       string
	sampleRate float64
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	clientsMu  sync.Mutex
	broadcast  chan Message
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	server     *http.Server
}

// NewWebSocketTransport creates a transport and starts its broadcast loop.
// Call Start to serve on addr, or mount Handler on an existing server.
func NewWebSocketTransport(addr string, sampleRate float64) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr:       addr,
		sampleRate: sampleRate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Meters are typically served from another origin
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 256),
		done:      make(chan struct{}),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler returns an http.Handler serving the feed at WebSocketPath.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	return mux
}

// Start serves Handler on the configured address in its own goroutine.
func (wst *WebSocketTransport) Start() {
	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: wst.Handler(),
	}

	go func() {
		applog.Infof("WebSocketTransport: Listening on %s%s", wst.addr, WebSocketPath)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients never send anything; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends queued messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case msg := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(msg); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues f for broadcast. Frames are dropped while the queue is full.
func (wst *WebSocketTransport) Send(f level.Frame) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- NewMessage(f, wst.sampleRate):
	default:
		applog.Debugf("WebSocketTransport: queue full, dropping frame %d", f.Index)
	}
	return nil
}

// Close disconnects all clients and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing")
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
