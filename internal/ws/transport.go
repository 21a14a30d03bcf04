package ws

import (
	"context"

	"github.com/gorilla/websocket"
)

// TokenProvider supplies the current session credential. An empty
// string means no credential is available; the manager then skips the
// connection attempt.
type TokenProvider interface {
	Token() string
}

// Conn is the transport surface the manager owns. Satisfied by
// *websocket.Conn.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a transport connection to an endpoint URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaDialer dials with the gorilla/websocket default dialer.
type GorillaDialer struct{}

// Dial opens a websocket connection.
func (GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}
