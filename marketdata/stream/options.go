package stream

import (
	"context"
	"net/url"
	"time"
)

// Option is a configuration option for the Client.
type Option interface {
	apply(*options)
}

type options struct {
	logger         Logger
	baseURL        string
	bufferCapacity int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	averageWindow  int
	connCreator    func(ctx context.Context, u url.URL) (conn, error)

	// for testing only
	backoffNotify func(time.Duration)
}

// defaultOptions are the default options for a client.
// Don't change this in a backward incompatible way!
func defaultOptions() *options {
	return &options{
		logger:         DefaultLogger(),
		baseURL:        "wss://stream.binance.com:9443/ws",
		bufferCapacity: 600,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
		averageWindow:  20,
		connCreator:    newNhooyrWebsocketConn,
	}
}

func (o *options) applyAll(opts ...Option) {
	for _, opt := range opts {
		opt.apply(o)
	}
}

type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

func newFuncOption(f func(*options)) Option {
	return &funcOption{f: f}
}

// WithLogger configures the logger
func WithLogger(logger Logger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// WithBaseURL configures the websocket base URL the per-symbol stream path
// is appended to
func WithBaseURL(url string) Option {
	return newFuncOption(func(o *options) {
		o.baseURL = url
	})
}

// WithBufferCapacity configures how many of the most recent samples the
// client retains. Older samples are evicted first.
func WithBufferCapacity(capacity int) Option {
	return newFuncOption(func(o *options) {
		o.bufferCapacity = capacity
	})
}

// WithBackoffSettings configures the reconnect delay: it starts at initial,
// doubles on each consecutive failure, is capped at max and resets to
// initial after a successful connection.
func WithBackoffSettings(initial, max time.Duration) Option {
	return newFuncOption(func(o *options) {
		o.initialBackoff = initial
		o.maxBackoff = max
	})
}

// WithMovingAverageWindow configures how many of the most recent prices
// feed the rolling average exposed by the reader.
func WithMovingAverageWindow(n int) Option {
	return newFuncOption(func(o *options) {
		o.averageWindow = n
	})
}

// WithGorillaWebsocket switches the transport to the gorilla/websocket
// implementation. The default is nhooyr.io/websocket.
func WithGorillaWebsocket() Option {
	return newFuncOption(func(o *options) {
		o.connCreator = newGorillaWebsocketConn
	})
}

func withConnCreator(connCreator func(ctx context.Context, u url.URL) (conn, error)) Option {
	return newFuncOption(func(o *options) {
		o.connCreator = connCreator
	})
}

func withBackoffNotify(f func(time.Duration)) Option {
	return newFuncOption(func(o *options) {
		o.backoffNotify = f
	})
}
