package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CachedClient wraps a Client and serves the ranked pair universe from
// a Cache. All other calls pass straight through.
type CachedClient struct {
	Client
	cache Cache
	ttl   time.Duration
}

// CachedClientOpts contains options for NewCachedClient.
type CachedClientOpts struct {
	// Client is the underlying market data client. Defaults to
	// DefaultClient.
	Client Client
	// Cache defaults to an in-process memory cache.
	Cache Cache
	// TTL is how long a ranked universe snapshot stays fresh.
	// Defaults to 30 seconds.
	TTL time.Duration
}

// NewCachedClient creates a CachedClient using the given opts.
func NewCachedClient(opts CachedClientOpts) *CachedClient {
	if opts.Client == nil {
		opts.Client = DefaultClient
	}
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	return &CachedClient{Client: opts.Client, cache: opts.Cache, ttl: opts.TTL}
}

// GetTopSymbols returns the ranked pair universe, served from cache
// while a snapshot for the same parameters is still fresh. Cache
// failures fall back to the underlying client.
func (c *CachedClient) GetTopSymbols(params GetTopSymbolsParams) ([]TopSymbol, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	quote := strings.ToUpper(params.QuoteAsset)
	if quote == "" {
		quote = "USDT"
	}
	key := fmt.Sprintf("marketdata:top:%s:%d", quote, limit)
	ctx := context.Background()

	if value, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var rows []TopSymbol
		if err := json.Unmarshal(value, &rows); err == nil {
			return rows, nil
		}
	}

	rows, err := c.Client.GetTopSymbols(params)
	if err != nil {
		return nil, err
	}
	if value, err := json.Marshal(rows); err == nil {
		_ = c.cache.Set(ctx, key, value, c.ttl)
	}
	return rows, nil
}
