// Package edgar implements a read-through client for SEC EDGAR.
// It resolves tickers to CIKs, caches per-entity submission snapshots,
// and normalizes the column-oriented recent-filings window into rows.
//
// No API key required. Every request must carry an identifying User-Agent
// per SEC fair-access policy.
// Docs: https://www.sec.gov/edgar/sec-api-documentation
// Rate limit: 10 requests/second per user-agent.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/filingwatch/internal/fetch"
)

const (
	// SEC EDGAR endpoints.
	DefaultTickersURL     = "https://www.sec.gov/files/company_tickers.json"
	DefaultSubmissionsURL = "https://data.sec.gov/submissions"
	DefaultArchivesURL    = "https://www.sec.gov/Archives/edgar/data"
	DefaultFeedURL        = "https://www.sec.gov/cgi-bin/browse-edgar"

	// DefaultSnapshotTTL absorbs bursts of related point-in-time lookups.
	DefaultSnapshotTTL = 30 * time.Second
	// StreamSnapshotTTL forces near-real-time refetches while streaming.
	StreamSnapshotTTL = 5 * time.Second

	maxErrorBody = 512
)

// Getter issues a single logical GET. *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error)
}

var _ Getter = (*fetch.Fetcher)(nil)

// Endpoints holds the upstream base URLs.
type Endpoints struct {
	TickersURL     string
	SubmissionsURL string
	ArchivesURL    string
	FeedURL        string
}

// DefaultEndpoints returns the production SEC endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		TickersURL:     DefaultTickersURL,
		SubmissionsURL: DefaultSubmissionsURL,
		ArchivesURL:    DefaultArchivesURL,
		FeedURL:        DefaultFeedURL,
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.TickersURL == "" {
		e.TickersURL = d.TickersURL
	}
	if e.SubmissionsURL == "" {
		e.SubmissionsURL = d.SubmissionsURL
	}
	if e.ArchivesURL == "" {
		e.ArchivesURL = d.ArchivesURL
	}
	if e.FeedURL == "" {
		e.FeedURL = d.FeedURL
	}
	e.SubmissionsURL = strings.TrimRight(e.SubmissionsURL, "/")
	e.ArchivesURL = strings.TrimRight(e.ArchivesURL, "/")
	return e
}

// --- Identifiers ---

// CanonicalCIK returns the unpadded decimal form of a CIK ("0000320193" and
// "320193" both yield "320193"). It is the cache key form.
func CanonicalCIK(cik string) (string, error) {
	s := strings.TrimSpace(cik)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "CIK"), "cik")
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || s == "" {
		return "", &InvalidIdentifierError{Value: cik}
	}
	return strconv.FormatUint(n, 10), nil
}

// PadCIK pads a CIK number to 10 digits with leading zeros, the form the
// submissions endpoint expects in its path.
func PadCIK(cik string) string {
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// SubmissionsURL builds the submissions document URL for a canonical CIK.
func SubmissionsURL(base, cik string) string {
	return fmt.Sprintf("%s/CIK%s.json", strings.TrimRight(base, "/"), PadCIK(cik))
}

// BuildPrimaryDocURL builds the archive URL of a filing's primary document.
// Dashes are stripped from the accession segment only. It returns "" when
// the accession or document is missing.
func BuildPrimaryDocURL(cik, accession, document string) string {
	return buildArchiveURL(DefaultArchivesURL, cik, accession, document)
}

func buildArchiveURL(base, cik, accession, document string) string {
	if accession == "" || document == "" {
		return ""
	}
	if canonical, err := CanonicalCIK(cik); err == nil {
		cik = canonical
	}
	return fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimRight(base, "/"), cik, strings.ReplaceAll(accession, "-", ""), document)
}

// --- Shared helpers ---

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}

// fetchJSON performs a GET and decodes a 200 response into dest. Any other
// status becomes an *UpstreamError.
func fetchJSON(ctx context.Context, g Getter, url string, dest any) error {
	resp, err := g.Get(ctx, url, jsonHeaders())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(url, resp); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &UpstreamError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status, Detail: "invalid JSON: " + err.Error()}
	}
	return nil
}

// checkStatus converts a non-200 response into an *UpstreamError carrying a
// body excerpt. The body is left for the caller to close.
func checkStatus(url string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &UpstreamError{
		URL:        url,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
		Transient:  fetch.IsTransientStatus(resp.StatusCode),
	}
}
