package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seliv/shaderviz/dsp"
)

var _ dsp.Sink = (*Publisher)(nil)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, p *Publisher, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for p.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("never reached %d clients", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublisherBroadcastsFrames(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, p, 1)

	frame := make([]byte, dsp.FrameSize)
	frame[0] = 42
	frame[dsp.FrameSize-1] = 7
	require.NoError(t, p.Send(frame))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, got, err := conn.ReadMessage()
	require.NoError(t, err)

	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, frame, got)
}

func TestPublisherDropsDeadClients(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, p, 1)

	conn.Close()

	// The read pump notices the close; subsequent sends still succeed.
	waitClients(t, p, 0)
	assert.NoError(t, p.Send(make([]byte, 4)))
}

func TestSendWithoutClients(t *testing.T) {
	p := NewPublisher()
	assert.NoError(t, p.Send([]byte{1, 2, 3}))
}
