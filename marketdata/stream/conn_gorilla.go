package stream

import (
	"context"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

type gorillaWebsocketConn struct {
	conn *websocket.Conn
}

// newGorillaWebsocketConn creates a new gorilla websocket connection
func newGorillaWebsocketConn(ctx context.Context, u url.URL) (conn, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	c, resp, err := websocket.DefaultDialer.DialContext(ctxWithTimeout, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// Binance sends its own pings. Gorilla's default ping handler answers
	// with a pong, we only need to keep the read deadline moving. The
	// deadline is armed right away so a silent peer cannot stall the
	// first read.
	if err := c.SetReadDeadline(time.Now().Add(pingPeriod + pongWait)); err != nil {
		c.Close()
		return nil, err
	}
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pingPeriod + pongWait))
	})

	return &gorillaWebsocketConn{conn: c}, nil
}

// close closes the websocket connection
func (c *gorillaWebsocketConn) close() error {
	deadline := time.Now().Add(writeWait)
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}

// ping sends a ping to the server
func (c *gorillaWebsocketConn) ping(_ context.Context) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// readMessage blocks until it reads a single message. Cancelling ctx does
// not interrupt an in-flight read: the caller unblocks it by closing the
// connection, which is what the client's pinger and stop path do.
func (c *gorillaWebsocketConn) readMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}
