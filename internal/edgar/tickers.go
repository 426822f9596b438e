package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/filingwatch/internal/logging"
	"github.com/seenimoa/filingwatch/pkg/models"
	"github.com/seenimoa/filingwatch/pkg/utils"
)

const tickerLoadKey = "company_tickers"

// tickerRow is a value of company_tickers.json, which is an object keyed by
// row index: {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
type tickerRow struct {
	CIK    json.Number `json:"cik_str"`
	Ticker string      `json:"ticker"`
	Title  string      `json:"title"`
}

// TickerCache maps ticker symbols to CIKs. The table is downloaded once per
// process on first use and kept for the life of the cache; there is no
// refresh path.
type TickerCache struct {
	getter Getter
	url    string
	logger *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	index   map[string]string
	entries []models.TickerEntry
}

// NewTickerCache creates a ticker cache backed by the bulk ticker file at url.
func NewTickerCache(g Getter, url string, logger *slog.Logger) *TickerCache {
	if url == "" {
		url = DefaultTickersURL
	}
	return &TickerCache{
		getter: g,
		url:    url,
		logger: logging.OrDiscard(logger),
	}
}

// Resolve returns the CIK for a ticker symbol. Matching is case-insensitive
// and tolerates "." or "/" as the share-class separator.
func (c *TickerCache) Resolve(ctx context.Context, ticker string) (string, error) {
	sym := utils.NormalizeTicker(ticker)
	if sym == "" {
		return "", &UnknownTickerError{Ticker: ticker}
	}

	index, err := c.load(ctx)
	if err != nil {
		return "", err
	}
	cik, ok := index[sym]
	if !ok {
		return "", &UnknownTickerError{Ticker: sym}
	}
	return cik, nil
}

// Loaded reports whether the ticker table has been downloaded.
func (c *TickerCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index != nil
}

// Len returns the number of distinct symbols loaded.
func (c *TickerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

// Entries returns the loaded rows in upstream row order, loading the table
// if needed.
func (c *TickerCache) Entries(ctx context.Context) ([]models.TickerEntry, error) {
	if _, err := c.load(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries), nil
}

// load returns the index, downloading it at most once at a time. Concurrent
// callers wait on the same in-flight download. The download itself is
// detached from any single caller's cancellation so one impatient caller
// cannot fail it for the others.
func (c *TickerCache) load(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	index := c.index
	c.mu.RUnlock()
	if index != nil {
		return index, nil
	}

	ch := c.group.DoChan(tickerLoadKey, func() (any, error) {
		c.mu.RLock()
		loaded := c.index
		c.mu.RUnlock()
		if loaded != nil {
			return loaded, nil
		}

		index, entries, err := c.download(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.index = index
		c.entries = entries
		c.mu.Unlock()
		return index, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]string), nil
	}
}

func (c *TickerCache) download(ctx context.Context) (map[string]string, []models.TickerEntry, error) {
	var rows map[string]tickerRow
	if err := fetchJSON(ctx, c.getter, c.url, &rows); err != nil {
		return nil, nil, fmt.Errorf("fetch company tickers: %w", err)
	}

	// Walk rows in row-index order so that, for a symbol listed twice, the
	// later row deterministically wins.
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareRowKeys)

	index := make(map[string]string, len(rows))
	entries := make([]models.TickerEntry, 0, len(rows))
	for _, k := range keys {
		row := rows[k]
		sym := utils.NormalizeTicker(row.Ticker)
		cik := strings.TrimSpace(row.CIK.String())
		if sym == "" || cik == "" {
			continue
		}
		if canonical, err := CanonicalCIK(cik); err == nil {
			cik = canonical
		}
		index[sym] = cik
		entries = append(entries, models.TickerEntry{CIK: cik, Ticker: sym, Title: row.Title})
	}

	c.logger.Info("ticker index loaded", "symbols", len(index), "rows", len(rows))
	return index, entries, nil
}

// compareRowKeys orders numeric row keys numerically, anything else after
// them lexically.
func compareRowKeys(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
