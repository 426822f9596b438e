package edgar

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxDocumentBytes bounds how much of a primary document is read.
const maxDocumentBytes = 16 << 20

// Document is the plain text of a filing's primary document, ready to be
// handed to a downstream summarizer.
type Document struct {
	CIK             string `json:"cik"`
	AccessionNumber string `json:"accession_number"`
	Form            string `json:"form"`
	URL             string `json:"url"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	Text            string `json:"text"`
	Bytes           int    `json:"bytes"`
}

// DocumentText fetches a filing's primary document and extracts its text.
// Documents are immutable once filed, so extracted text is cached by URL.
func (c *Client) DocumentText(ctx context.Context, cik, accession string) (*Document, error) {
	key, err := CanonicalCIK(cik)
	if err != nil {
		return nil, err
	}
	rec, err := c.FindFiling(ctx, key, accession)
	if err != nil {
		return nil, err
	}
	u := c.PrimaryDocURL(key, *rec)
	if u == "" {
		return nil, &UpstreamError{Detail: fmt.Sprintf("filing %s has no primary document", rec.AccessionNumber)}
	}

	if cached, ok := c.documents.Get(u); ok {
		return cached.(*Document), nil
	}

	resp, err := c.getter.Get(ctx, u, map[string]string{"Accept": "text/html, text/plain, */*"})
	if err != nil {
		return nil, fmt.Errorf("edgar document %s: %w", rec.AccessionNumber, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(u, resp); err != nil {
		return nil, fmt.Errorf("edgar document %s: %w", rec.AccessionNumber, err)
	}

	title, text, n, err := extractText(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("edgar document %s: %w", rec.AccessionNumber, err)
	}

	doc := &Document{
		CIK:             key,
		AccessionNumber: rec.AccessionNumber,
		Form:            rec.FormType(),
		URL:             u,
		Title:           title,
		Description:     deref(rec.PrimaryDocDescription),
		Text:            text,
		Bytes:           n,
	}
	c.documents.SetDefault(u, doc)
	c.logger.Debug("document fetched", "cik", key, "accession", rec.AccessionNumber, "bytes", n)
	return doc, nil
}

// extractText parses HTML (plain text passes through as a body) and returns
// the title and whitespace-collapsed visible text.
func extractText(r io.Reader) (title, text string, n int, err error) {
	cr := &countingReader{r: r}
	doc, err := goquery.NewDocumentFromReader(cr)
	if err != nil {
		return "", "", cr.n, fmt.Errorf("parse document: %w", err)
	}
	doc.Find("script, style, noscript, head").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "head" {
			title = strings.TrimSpace(s.Find("title").First().Text())
		}
		s.Remove()
	})
	// Inline XBRL carries a hidden header block of machine-readable facts.
	doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return goquery.NodeName(s) == "ix:header"
	}).Remove()

	text = strings.Join(strings.Fields(doc.Text()), " ")
	return title, text, cr.n, nil
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
