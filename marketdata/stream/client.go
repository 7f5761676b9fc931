package stream

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/google/uuid"
)

// Client streams real-time trade prices for a single symbol over a
// persistent websocket connection and keeps a bounded rolling history of
// the received samples.
//
// Start launches exactly one background goroutine that maintains the
// connection, reconnecting with escalating backoff, until Stop is called
// or the symbol is switched by another Start. Stop only signals the
// goroutine and returns immediately; the goroutine observes the signal at
// every suspension point and exits on its own, releasing the connection.
//
// All read accessors are safe to call from any goroutine at any time and
// return sentinel values before the first sample arrives. A Client is
// reusable: Start may be called again after Stop.
type Client struct {
	logger         Logger
	baseURL        string
	initialBackoff time.Duration
	maxBackoff     time.Duration
	averageWindow  int
	connCreator    func(ctx context.Context, u url.URL) (conn, error)
	backoffNotify  func(time.Duration)

	buf *history

	// lifecycleMu serializes Start and Stop so that two concurrent Start
	// calls cannot both believe they replaced the running session.
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc

	// stateMu guards the session state shared between the background unit
	// and foreground readers. epoch identifies the current session: a
	// writer that captured an older epoch is stale and its writes are
	// dropped, even if its goroutine has not fully unwound yet.
	stateMu      sync.RWMutex
	epoch        uint64
	status       Status
	symbol       string
	sessionID    string
	startedAt    time.Time
	lastUpdate   time.Time
	errorCount   int
	messageCount int64
	avg          *movingaverage.MovingAverage
}

// NewClient returns a new streaming client whose default configuration is
// modified by opts. The client owns no connection until Start is called.
func NewClient(opts ...Option) *Client {
	o := defaultOptions()
	o.applyAll(opts...)
	return &Client{
		logger:         o.logger,
		baseURL:        o.baseURL,
		initialBackoff: o.initialBackoff,
		maxBackoff:     o.maxBackoff,
		averageWindow:  o.averageWindow,
		connCreator:    o.connCreator,
		backoffNotify:  o.backoffNotify,
		buf:            newHistory(o.bufferCapacity),
	}
}

// Start begins streaming trades for symbol. If the client is already
// streaming the same symbol (case-insensitively) it is a no-op. Otherwise
// any running session is torn down, the history and counters are reset
// and a new background session is launched.
func (c *Client) Start(symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ErrEmptySymbol
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.cancel != nil && c.currentSymbol() == symbol {
		c.logger.Infof("pricestream: already streaming %s", symbol)
		return nil
	}

	c.stopSession()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.stateMu.Lock()
	c.epoch++
	epoch := c.epoch
	c.status = StatusConnecting
	c.symbol = symbol
	c.sessionID = uuid.NewString()
	c.startedAt = time.Now()
	c.lastUpdate = time.Time{}
	c.errorCount = 0
	c.messageCount = 0
	c.avg = movingaverage.New(c.averageWindow)
	c.stateMu.Unlock()
	c.buf.clear()

	go c.run(ctx, epoch, symbol)

	c.logger.Infof("pricestream: started price stream for %s", symbol)
	return nil
}

// Stop tears down the running session, if any, and discards the buffered
// history. It is idempotent and does not block waiting for the background
// goroutine: it cancels the session, immediately publishes the
// disconnected state and returns.
func (c *Client) Stop() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.stopSession()
}

// stopSession must be called with lifecycleMu held.
func (c *Client) stopSession() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil

	c.stateMu.Lock()
	// Invalidate in-flight writers right away instead of waiting for the
	// old goroutine to notice the cancellation.
	c.epoch++
	c.status = StatusDisconnected
	c.symbol = ""
	c.sessionID = ""
	c.startedAt = time.Time{}
	c.avg = nil
	c.stateMu.Unlock()
	c.buf.clear()

	c.logger.Infof("pricestream: price stream stopped")
}

// LatestPrice returns the most recent price, or false if no sample has
// been received yet.
func (c *Client) LatestPrice() (float64, bool) {
	s, ok := c.buf.latest()
	if !ok {
		return 0, false
	}
	return s.Price, true
}

// Series returns a consistent copy of the buffered timestamps and prices
// in insertion order. Both slices are empty before the first sample.
func (c *Client) Series() (timestamps, prices []float64) {
	return c.buf.snapshot()
}

// PriceChange returns the percentage change between the newest sample and
// the most recent sample at least window older than it. The second return
// value is false with fewer than two samples or if no sample is old enough.
func (c *Client) PriceChange(window time.Duration) (float64, bool) {
	return c.buf.changeOver(window.Seconds())
}

// MovingAverage returns the rolling average of the most recent prices, or
// false if no sample has been received in this session.
func (c *Client) MovingAverage() (float64, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.avg == nil || c.messageCount == 0 {
		return 0, false
	}
	return c.avg.Avg(), true
}

// ConnectionInfo returns a read-only diagnostic snapshot of the client.
func (c *Client) ConnectionInfo() ConnectionInfo {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	info := ConnectionInfo{
		Status:       c.status,
		Symbol:       c.symbol,
		SessionID:    c.sessionID,
		ErrorCount:   c.errorCount,
		MessageCount: c.messageCount,
		LastUpdate:   c.lastUpdate,
	}
	if !c.startedAt.IsZero() {
		info.Uptime = time.Since(c.startedAt)
	}
	return info
}

func (c *Client) currentSymbol() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.symbol
}

// run maintains the connection for one session: dial, read until the
// connection drops, back off and redial. It exits when the session
// context is cancelled or the desired symbol changes.
func (c *Client) run(ctx context.Context, epoch uint64, symbol string) {
	u, err := c.streamURL(symbol)
	if err != nil {
		c.logger.Errorf("pricestream: invalid stream url for %s: %v", symbol, err)
		c.setStatus(epoch, StatusError)
		return
	}

	backoff := c.initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		c.setStatus(epoch, StatusConnecting)
		c.logger.Infof("pricestream: connecting to %s", u.String())
		conn, err := c.connCreator(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.recordFailure(epoch, StatusError)
			c.logger.Warnf("pricestream: failed to connect: %v", err)
			if !c.waitBackoff(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.maxBackoff)
			continue
		}

		c.logger.Infof("pricestream: established connection for %s", symbol)
		backoff = c.initialBackoff
		c.setStatus(epoch, StatusConnected)

		err = c.readLoop(ctx, conn, epoch, symbol)
		conn.close()
		switch {
		case ctx.Err() != nil:
			c.logger.Infof("pricestream: stream for %s stopped", symbol)
			return
		case errors.Is(err, errSymbolChanged):
			c.logger.Infof("pricestream: symbol changed, closing %s stream without reconnect", symbol)
			return
		default:
			c.recordFailure(epoch, StatusReconnecting)
			c.logger.Warnf("pricestream: connection lost for %s: %v", symbol, err)
			if !c.waitBackoff(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.maxBackoff)
		}
	}
}

// readLoop reads frames until the connection fails or the session is no
// longer wanted. The pinger owns closing the connection: it closes it on
// ping failure and on context cancellation, which also unblocks a read.
func (c *Client) readLoop(ctx context.Context, conn conn, epoch uint64, symbol string) error {
	pingCtx, stopPinger := context.WithCancel(ctx)
	pingerDone := make(chan struct{})
	go func() {
		defer close(pingerDone)
		c.connPinger(pingCtx, conn)
	}()
	defer func() {
		stopPinger()
		<-pingerDone
	}()

	for {
		data, err := conn.readMessage(ctx)
		if err != nil {
			return err
		}
		if err := c.handleFrame(data, epoch, symbol); err != nil {
			return err
		}
	}
}

// connPinger periodically pings the server to ensure the connection is
// still alive and closes it on exit.
func (c *Client) connPinger(ctx context.Context, conn conn) {
	pingTicker := newPingTicker()
	defer func() {
		pingTicker.Stop()
		conn.close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C():
			if err := conn.ping(ctx); err != nil {
				if ctx.Err() == nil {
					c.logger.Warnf("pricestream: ping failed: %v", err)
				}
				return
			}
		}
	}
}

// handleFrame decodes one inbound frame and appends the sample. Malformed
// frames are logged and dropped without terminating the connection. A
// desired-symbol change returns errSymbolChanged, which tears the session
// down without reconnecting.
func (c *Client) handleFrame(data []byte, epoch uint64, symbol string) error {
	if !c.stillWants(epoch, symbol) {
		return errSymbolChanged
	}

	ev, err := parseTradeEvent(data)
	if err != nil {
		c.logger.Warnf("pricestream: dropping malformed frame: %v", err)
		return nil
	}
	if ev.EventType != "" && ev.EventType != eventTypeTrade {
		return nil
	}
	if err := ev.validate(); err != nil {
		c.logger.Warnf("pricestream: dropping malformed frame: %v", err)
		return nil
	}
	if ev.Symbol != "" && !strings.EqualFold(ev.Symbol, symbol) {
		// frame from another stream, not ours to record
		return nil
	}

	c.record(epoch, ev.sample())
	return nil
}

// record appends a sample on behalf of the session identified by epoch.
// Stale sessions are dropped silently.
func (c *Client) record(epoch uint64, s Sample) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.buf.append(s)
	c.messageCount++
	c.lastUpdate = time.Now()
	if c.avg != nil {
		c.avg.Add(s.Price)
	}
}

// stillWants reports whether the client still wants the session's symbol.
func (c *Client) stillWants(epoch uint64, symbol string) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return epoch == c.epoch && symbol == c.symbol
}

func (c *Client) setStatus(epoch uint64, status Status) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.status = status
}

func (c *Client) recordFailure(epoch uint64, status Status) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.errorCount++
	c.status = status
}

// waitBackoff waits out the reconnect delay. It returns false if the
// session was cancelled during the wait.
func (c *Client) waitBackoff(ctx context.Context, d time.Duration) bool {
	if c.backoffNotify != nil {
		c.backoffNotify(d)
	}
	c.logger.Infof("pricestream: reconnecting in %s", d)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

// streamURL derives the per-symbol stream endpoint from the base URL. The
// subscription identifier is the lower-cased symbol.
func (c *Client) streamURL(symbol string) (url.URL, error) {
	ub, err := url.Parse(c.baseURL)
	if err != nil {
		return url.URL{}, err
	}
	scheme := "wss"
	switch ub.Scheme {
	case "http", "ws":
		scheme = "ws"
	}
	return url.URL{
		Scheme: scheme,
		Host:   ub.Host,
		Path:   ub.Path + "/" + strings.ToLower(symbol) + "@trade",
	}, nil
}
