package edgar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/filingwatch/internal/logging"
	"github.com/seenimoa/filingwatch/pkg/models"
	"github.com/seenimoa/filingwatch/pkg/utils"
)

// ClientConfig configures a Client. Zero values fall back to defaults.
type ClientConfig struct {
	Endpoints          Endpoints
	Clock              func() time.Time
	Logger             *slog.Logger
	DocumentTTL        time.Duration
	ResolveConcurrency int
}

// Client is the collaborator-facing entry point. It owns one ticker cache
// and one submissions cache; construct one per process (or per test).
type Client struct {
	getter      Getter
	endpoints   Endpoints
	logger      *slog.Logger
	tickers     *TickerCache
	submissions *SubmissionsCache
	documents   *cache.Cache
	concurrency int
}

// NewClient creates a client that issues requests through g.
func NewClient(g Getter, cfg ClientConfig) *Client {
	ep := cfg.Endpoints.withDefaults()
	logger := logging.OrDiscard(cfg.Logger)

	docTTL := cfg.DocumentTTL
	if docTTL <= 0 {
		docTTL = 10 * time.Minute
	}
	concurrency := cfg.ResolveConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Client{
		getter:      g,
		endpoints:   ep,
		logger:      logger,
		tickers:     NewTickerCache(g, ep.TickersURL, logger),
		submissions: NewSubmissionsCache(g, ep.SubmissionsURL, cfg.Clock, logger),
		documents:   cache.New(docTTL, 2*docTTL),
		concurrency: concurrency,
	}
}

// Tickers returns the client's ticker cache.
func (c *Client) Tickers() *TickerCache { return c.tickers }

// Submissions returns the client's submissions cache.
func (c *Client) Submissions() *SubmissionsCache { return c.submissions }

// ResolveEntity maps a ticker symbol to its CIK.
func (c *Client) ResolveEntity(ctx context.Context, ticker string) (string, error) {
	return c.tickers.Resolve(ctx, ticker)
}

// ResolveIdentifier accepts either a CIK (digits, optionally prefixed with
// "CIK") or a ticker symbol and returns the canonical CIK.
func (c *Client) ResolveIdentifier(ctx context.Context, arg string) (string, error) {
	s := strings.TrimSpace(arg)
	if IsNumeric(strings.TrimPrefix(strings.ToUpper(s), "CIK")) {
		return CanonicalCIK(strings.ToUpper(s))
	}
	return c.ResolveEntity(ctx, s)
}

// Resolution is one result of ResolveMany.
type Resolution struct {
	Ticker string `json:"ticker"`
	CIK    string `json:"cik,omitempty"`
	Err    error  `json:"-"`
}

// ResolveMany resolves several tickers concurrently. Per-ticker misses are
// reported in the results; only a failure to load the index (or
// cancellation) is returned as an error.
func (c *Client) ResolveMany(ctx context.Context, tickers []string) ([]Resolution, error) {
	out := make([]Resolution, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, t := range tickers {
		g.Go(func() error {
			cik, err := c.ResolveEntity(gctx, t)
			out[i] = Resolution{Ticker: utils.NormalizeTicker(t), CIK: cik, Err: err}
			if err != nil && !isUnknownTicker(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSnapshot returns the entity's submissions snapshot, at most ttl old.
func (c *Client) GetSnapshot(ctx context.Context, cik string, ttl time.Duration) (*models.SubmissionsSnapshot, error) {
	return c.submissions.Get(ctx, cik, ttl)
}

// ListFilings returns the entity's recent filings in upstream order,
// filtered to forms (all when empty) and truncated to limit (all when <= 0).
func (c *Client) ListFilings(ctx context.Context, cik string, forms []string, limit int) ([]models.FilingRecord, error) {
	snap, err := c.GetSnapshot(ctx, cik, DefaultSnapshotTTL)
	if err != nil {
		return nil, err
	}
	records := Normalize(snap.Filings.Recent)
	if err := CheckOrder(records); err != nil {
		return nil, fmt.Errorf("edgar filings %s: %w", snap.CIK, err)
	}
	records = FilterForms(records, forms)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// FindFiling looks up one filing of the entity by accession number.
func (c *Client) FindFiling(ctx context.Context, cik, accession string) (*models.FilingRecord, error) {
	snap, err := c.GetSnapshot(ctx, cik, DefaultSnapshotTTL)
	if err != nil {
		return nil, err
	}
	want := strings.ReplaceAll(strings.TrimSpace(accession), "-", "")
	for _, r := range Normalize(snap.Filings.Recent) {
		if strings.ReplaceAll(r.AccessionNumber, "-", "") == want {
			return &r, nil
		}
	}
	return nil, &FilingNotFoundError{CIK: snap.CIK, Accession: accession}
}

// PrimaryDocURL builds the primary-document URL of a record, or "" when the
// record lacks a primary document.
func (c *Client) PrimaryDocURL(cik string, r models.FilingRecord) string {
	if r.PrimaryDocument == nil {
		return ""
	}
	return buildArchiveURL(c.endpoints.ArchivesURL, cik, r.AccessionNumber, *r.PrimaryDocument)
}

func isUnknownTicker(err error) bool {
	return errors.Is(err, ErrUnknownTicker)
}
