package stream

import "time"

// Reader is a read-only facade over a Client for a caller that polls on
// its own cadence, such as a UI render loop. Every method returns
// immediately with the best available data and uses sentinel values
// instead of errors when no data has arrived yet, so the caller can
// always render something without coordinating with the background unit.
type Reader struct {
	c *Client
}

// NewReader returns a read-only view of c.
func NewReader(c *Client) *Reader {
	return &Reader{c: c}
}

// LatestPrice returns the most recent price, or false if there is none.
func (r *Reader) LatestPrice() (float64, bool) {
	return r.c.LatestPrice()
}

// Series returns a consistent copy of the buffered series.
func (r *Reader) Series() (timestamps, prices []float64) {
	return r.c.Series()
}

// Change returns the percentage price change over the given window, or
// false if the buffer does not cover it yet.
func (r *Reader) Change(window time.Duration) (float64, bool) {
	return r.c.PriceChange(window)
}

// MovingAverage returns the rolling average of recent prices, or false
// before the first sample.
func (r *Reader) MovingAverage() (float64, bool) {
	return r.c.MovingAverage()
}

// Status returns the connection status.
func (r *Reader) Status() Status {
	return r.c.ConnectionInfo().Status
}

// Info returns the full diagnostic snapshot.
func (r *Reader) Info() ConnectionInfo {
	return r.c.ConnectionInfo()
}
