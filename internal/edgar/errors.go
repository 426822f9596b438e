package edgar

import (
	"errors"
	"fmt"

	"github.com/seenimoa/filingwatch/internal/fetch"
)

// ErrUnknownTicker matches any *UnknownTickerError via errors.Is.
var ErrUnknownTicker = errors.New("unknown ticker")

// UnknownTickerError is returned when a symbol is not in the ticker index.
type UnknownTickerError struct {
	Ticker string
}

func (e *UnknownTickerError) Error() string {
	return fmt.Sprintf("unknown ticker %q", e.Ticker)
}

func (e *UnknownTickerError) Is(target error) bool { return target == ErrUnknownTicker }

// InvalidIdentifierError is returned for a CIK that is not a decimal number.
type InvalidIdentifierError struct {
	Value string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid CIK %q", e.Value)
}

// UpstreamError describes an unusable upstream answer. Transient marks a
// retryable status that outlived the fetcher's retries; otherwise the error
// is permanent (a non-retryable status, malformed data, or a broken
// ordering/shape invariant).
type UpstreamError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
	Detail     string
	Transient  bool
}

func (e *UpstreamError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	switch {
	case e.Detail != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s upstream error: HTTP %d from %s: %s", kind, e.StatusCode, e.URL, e.Detail)
	case e.Detail != "":
		return fmt.Sprintf("%s upstream error: %s", kind, e.Detail)
	case e.Body != "":
		return fmt.Sprintf("%s upstream error: HTTP %d from %s: %s", kind, e.StatusCode, e.URL, e.Body)
	default:
		return fmt.Sprintf("%s upstream error: HTTP %d from %s", kind, e.StatusCode, e.URL)
	}
}

// FilingNotFoundError is returned when an accession number is not in an
// entity's recent-filings window.
type FilingNotFoundError struct {
	CIK       string
	Accession string
}

func (e *FilingNotFoundError) Error() string {
	return fmt.Sprintf("filing %s not found in recent filings of CIK %s", e.Accession, e.CIK)
}

// IsTransient reports whether err stems from a retryable upstream condition.
func IsTransient(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient
	}
	var te *fetch.TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is a non-retryable upstream error.
func IsPermanent(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && !ue.Transient
}
