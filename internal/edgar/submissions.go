package edgar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/filingwatch/internal/infra"
	"github.com/seenimoa/filingwatch/internal/logging"
	"github.com/seenimoa/filingwatch/pkg/models"
)

// SubmissionsCache memoizes each entity's submissions snapshot. Freshness
// is chosen per call; entries are only ever replaced by a successful fetch.
type SubmissionsCache struct {
	getter  Getter
	baseURL string
	logger  *slog.Logger
	store   *infra.Store[*models.SubmissionsSnapshot]
	group   singleflight.Group
}

// NewSubmissionsCache creates a cache reading from the submissions base URL.
// A nil clock means the wall clock.
func NewSubmissionsCache(g Getter, baseURL string, now func() time.Time, logger *slog.Logger) *SubmissionsCache {
	if baseURL == "" {
		baseURL = DefaultSubmissionsURL
	}
	return &SubmissionsCache{
		getter:  g,
		baseURL: baseURL,
		logger:  logging.OrDiscard(logger),
		store:   infra.NewStoreWithClock[*models.SubmissionsSnapshot](now),
	}
}

// Get returns the snapshot for cik, refetching when the cached entry is at
// least ttl old. A ttl of zero or less means DefaultSnapshotTTL.
//
// A failed fetch leaves any previous entry in place and returns the error;
// stale data is never served in its stead.
func (c *SubmissionsCache) Get(ctx context.Context, cik string, ttl time.Duration) (*models.SubmissionsSnapshot, error) {
	key, err := CanonicalCIK(cik)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if snap, ok := c.store.GetFresh(key, ttl); ok {
		return snap, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		snap, err := c.fetch(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		c.store.Put(key, snap)
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.SubmissionsSnapshot), nil
	}
}

// Cached returns the stored entry for cik regardless of age.
func (c *SubmissionsCache) Cached(cik string) (infra.CacheEntry[*models.SubmissionsSnapshot], bool) {
	key, err := CanonicalCIK(cik)
	if err != nil {
		return infra.CacheEntry[*models.SubmissionsSnapshot]{}, false
	}
	return c.store.Get(key)
}

// Len returns the number of cached entities.
func (c *SubmissionsCache) Len() int { return c.store.Len() }

func (c *SubmissionsCache) fetch(ctx context.Context, cik string) (*models.SubmissionsSnapshot, error) {
	url := SubmissionsURL(c.baseURL, cik)
	start := time.Now()

	var snap models.SubmissionsSnapshot
	if err := fetchJSON(ctx, c.getter, url, &snap); err != nil {
		c.logger.Warn("submissions fetch failed", "cik", cik, "error", err)
		return nil, fmt.Errorf("edgar submissions %s: %w", cik, err)
	}
	if err := validateRecent(url, snap.Filings.Recent); err != nil {
		return nil, fmt.Errorf("edgar submissions %s: %w", cik, err)
	}
	if canonical, err := CanonicalCIK(snap.CIK); err == nil {
		snap.CIK = canonical
	} else {
		snap.CIK = cik
	}

	c.logger.Debug("submissions fetched",
		"cik", cik, "recent", snap.Filings.Recent.Len(), "took", time.Since(start))
	return &snap, nil
}

// validateRecent rejects a recent-filings section whose optional columns
// run longer than the accession column. Shorter columns are tolerated and
// read as nulls by Normalize.
func validateRecent(url string, r *models.RecentFilings) error {
	if r == nil {
		return nil
	}
	n := len(r.AccessionNumber)
	columns := []struct {
		name string
		len  int
	}{
		{"filingDate", len(r.FilingDate)},
		{"reportDate", len(r.ReportDate)},
		{"acceptanceDateTime", len(r.AcceptanceDateTime)},
		{"act", len(r.Act)},
		{"form", len(r.Form)},
		{"fileNumber", len(r.FileNumber)},
		{"filmNumber", len(r.FilmNumber)},
		{"items", len(r.Items)},
		{"size", len(r.Size)},
		{"isXBRL", len(r.IsXBRL)},
		{"isInlineXBRL", len(r.IsInlineXBRL)},
		{"primaryDocument", len(r.PrimaryDocument)},
		{"primaryDocDescription", len(r.PrimaryDocDescription)},
	}
	for _, col := range columns {
		if col.len > n {
			return &UpstreamError{
				URL:    url,
				Detail: fmt.Sprintf("recent filings column %s has %d entries, accessionNumber has %d", col.name, col.len, n),
			}
		}
	}
	return nil
}
