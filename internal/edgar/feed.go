package edgar

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/filingwatch/pkg/models"
)

// EDGAR only serves these page sizes for the current-filings feed.
var feedCounts = []int{10, 20, 40, 80, 100}

var (
	// "8-K - Apple Inc. (0000320193) (Filer)"
	feedTitleRe = regexp.MustCompile(`^(\S+)\s+-\s+(.+?)\s+\((\d+)\)\s*(?:\([^)]*\))?\s*$`)
	accessionRe = regexp.MustCompile(`\d{10}-\d{2}-\d{6}`)
)

// CurrentFilings reads the EDGAR current-filings Atom feed, newest first,
// optionally restricted to one form type.
func (c *Client) CurrentFilings(ctx context.Context, form string, limit int) ([]models.FeedEntry, error) {
	q := url.Values{}
	q.Set("action", "getcurrent")
	q.Set("type", strings.TrimSpace(form))
	q.Set("company", "")
	q.Set("dateb", "")
	q.Set("owner", "include")
	q.Set("start", "0")
	q.Set("count", strconv.Itoa(feedCount(limit)))
	q.Set("output", "atom")
	u := c.endpoints.FeedURL + "?" + q.Encode()

	resp, err := c.getter.Get(ctx, u, map[string]string{"Accept": "application/atom+xml"})
	if err != nil {
		return nil, fmt.Errorf("edgar current feed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(u, resp); err != nil {
		return nil, fmt.Errorf("edgar current feed: %w", err)
	}

	// gofeed parsers keep per-parse state; use a fresh one per call.
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &UpstreamError{URL: u, StatusCode: resp.StatusCode, Detail: "invalid feed: " + err.Error()}
	}

	entries := make([]models.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, parseFeedItem(item))
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func parseFeedItem(item *gofeed.Item) models.FeedEntry {
	e := models.FeedEntry{
		Link:    item.Link,
		Summary: cleanHTML(item.Description),
	}
	if m := feedTitleRe.FindStringSubmatch(strings.TrimSpace(item.Title)); m != nil {
		e.Form = m[1]
		e.CompanyName = m[2]
		if cik, err := CanonicalCIK(m[3]); err == nil {
			e.CIK = cik
		}
	} else {
		e.CompanyName = strings.TrimSpace(item.Title)
	}
	for _, s := range []string{item.Description, item.GUID, item.Link} {
		if acc := accessionRe.FindString(s); acc != "" {
			e.AccessionNumber = acc
			break
		}
	}
	switch {
	case item.UpdatedParsed != nil:
		e.FiledAt = *item.UpdatedParsed
	case item.PublishedParsed != nil:
		e.FiledAt = *item.PublishedParsed
	}
	return e
}

func feedCount(limit int) int {
	for _, n := range feedCounts {
		if limit <= n {
			return n
		}
	}
	return feedCounts[len(feedCounts)-1]
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
