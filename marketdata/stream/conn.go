package stream

import (
	"context"
	"time"
)

// conn represents a websocket connection between the feed and the client
type conn interface {
	// close closes the websocket connection
	close() error
	// ping sends a ping to the server
	ping(ctx context.Context) error
	// readMessage blocks until it reads a single message
	readMessage(ctx context.Context) (data []byte, err error)
}

var (
	dialTimeout = 10 * time.Second // Time allowed to complete the websocket handshake
	writeWait   = 5 * time.Second  // Time allowed to write a message to the peer
	pongWait    = 10 * time.Second // Time allowed to read the next pong message from the peer
	pingPeriod  = 20 * time.Second // Send pings to peer with this period
)
