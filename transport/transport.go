// Package transport publishes analysis frames to websocket clients so
// external visualizers can subscribe to the same spectrum the shaders
// see.
package transport

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,

	// The tap is a local diagnostics endpoint.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Publisher fans analysis frames out to connected clients. It
// implements the analyzer's Sink.
type Publisher struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewPublisher returns an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{clients: make(map[*websocket.Conn]struct{})}
}

// Handler returns the upgrade endpoint.
func (p *Publisher) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}

		p.mu.Lock()
		p.clients[conn] = struct{}{}
		p.mu.Unlock()

		// Drain control frames; the tap never expects client data.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					p.drop(conn)
					return
				}
			}
		}()
	})
}

// Send broadcasts one frame as a binary message. Clients that fail to
// accept the write are dropped.
func (p *Publisher) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for conn := range p.clients {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			conn.Close()
			delete(p.clients, conn)
		}
	}
	return nil
}

// ClientCount reports the number of connected subscribers.
func (p *Publisher) ClientCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close disconnects every client.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for conn := range p.clients {
		conn.Close()
		delete(p.clients, conn)
	}
}

func (p *Publisher) drop(conn *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.clients[conn]; ok {
		conn.Close()
		delete(p.clients, conn)
	}
}
