package models

import "time"

// --- EDGAR submissions ---

// SubmissionsSnapshot is an entity's known filing history as returned by
// data.sec.gov/submissions at one point in time. A snapshot is never
// mutated; a newer fetch replaces it whole.
type SubmissionsSnapshot struct {
	CIK                  string          `json:"cik"`
	EntityType           string          `json:"entityType,omitempty"`
	SIC                  string          `json:"sic,omitempty"`
	SICDescription       string          `json:"sicDescription,omitempty"`
	Name                 string          `json:"name"`
	Tickers              []string        `json:"tickers"`
	Exchanges            []string        `json:"exchanges,omitempty"`
	EIN                  string          `json:"ein,omitempty"`
	StateOfIncorporation string          `json:"stateOfIncorporation,omitempty"`
	FiscalYearEnd        string          `json:"fiscalYearEnd,omitempty"`
	Filings              SubmissionFiles `json:"filings"`
}

// SubmissionFiles groups the recent-filings window and the list of older
// history pages.
type SubmissionFiles struct {
	Recent *RecentFilings   `json:"recent,omitempty"`
	Files  []SubmissionPage `json:"files,omitempty"`
}

// RecentFilings is the column-oriented recent-filings section. Every column
// is indexed by the same position; AccessionNumber is mandatory and defines
// the row count. A nil column means the attribute is absent.
type RecentFilings struct {
	AccessionNumber       []string `json:"accessionNumber"`
	FilingDate            []string `json:"filingDate,omitempty"`
	ReportDate            []string `json:"reportDate,omitempty"`
	AcceptanceDateTime    []string `json:"acceptanceDateTime,omitempty"`
	Act                   []string `json:"act,omitempty"`
	Form                  []string `json:"form,omitempty"`
	FileNumber            []string `json:"fileNumber,omitempty"`
	FilmNumber            []string `json:"filmNumber,omitempty"`
	Items                 []string `json:"items,omitempty"`
	Size                  []int64  `json:"size,omitempty"`
	IsXBRL                []int    `json:"isXBRL,omitempty"`
	IsInlineXBRL          []int    `json:"isInlineXBRL,omitempty"`
	PrimaryDocument       []string `json:"primaryDocument,omitempty"`
	PrimaryDocDescription []string `json:"primaryDocDescription,omitempty"`
}

// Len returns the number of recent filings.
func (r *RecentFilings) Len() int {
	if r == nil {
		return 0
	}
	return len(r.AccessionNumber)
}

// SubmissionPage points at an older page of filing history.
type SubmissionPage struct {
	Name        string `json:"name"`
	FilingCount int    `json:"filingCount"`
	FilingFrom  string `json:"filingFrom"`
	FilingTo    string `json:"filingTo"`
}

// FilingRecord is one row of the recent-filings window. Nil pointers mean
// the upstream did not supply the attribute for this row.
type FilingRecord struct {
	AccessionNumber       string  `json:"accessionNumber"`
	FilingDate            *string `json:"filingDate"`
	ReportDate            *string `json:"reportDate"`
	AcceptanceDateTime    *string `json:"acceptanceDateTime"`
	Act                   *string `json:"act"`
	Form                  *string `json:"form"`
	FileNumber            *string `json:"fileNumber"`
	FilmNumber            *string `json:"filmNumber"`
	Items                 *string `json:"items"`
	Size                  *int64  `json:"size"`
	IsXBRL                *bool   `json:"isXBRL"`
	IsInlineXBRL          *bool   `json:"isInlineXBRL"`
	PrimaryDocument       *string `json:"primaryDocument"`
	PrimaryDocDescription *string `json:"primaryDocDescription"`
}

// FormType returns the form type, or "" when absent.
func (r FilingRecord) FormType() string {
	if r.Form == nil {
		return ""
	}
	return *r.Form
}

// FiledOn returns the filing date, or "" when absent.
func (r FilingRecord) FiledOn() string {
	if r.FilingDate == nil {
		return ""
	}
	return *r.FilingDate
}

// --- Ticker mapping ---

// TickerEntry is a row of company_tickers.json.
type TickerEntry struct {
	CIK    string `json:"cik"`
	Ticker string `json:"ticker"`
	Title  string `json:"title,omitempty"`
}

// --- Current filings feed ---

// FeedEntry is one item of the EDGAR current-filings Atom feed.
type FeedEntry struct {
	Form            string    `json:"form"`
	CompanyName     string    `json:"company_name"`
	CIK             string    `json:"cik"`
	AccessionNumber string    `json:"accession_number"`
	FiledAt         time.Time `json:"filed_at"`
	Link            string    `json:"link"`
	Summary         string    `json:"summary,omitempty"`
}

// --- Change stream ---

// StreamEventType distinguishes filing events from in-band errors.
type StreamEventType string

const (
	EventFiling StreamEventType = "filing"
	EventError  StreamEventType = "error"
)

// StreamEvent is one item delivered by a change-detection stream.
type StreamEvent struct {
	Type        StreamEventType `json:"type"`
	Seq         int             `json:"seq"`
	CIK         string          `json:"cik"`
	Filing      *FilingRecord   `json:"filing,omitempty"`
	DocumentURL string          `json:"document_url,omitempty"`
	Message     string          `json:"message,omitempty"`
	Retryable   bool            `json:"retryable,omitempty"`
	ObservedAt  time.Time       `json:"observed_at"`
}

// StreamStatus is the terminal status of a stream.
type StreamStatus string

const (
	StreamSucceeded StreamStatus = "succeeded"
	StreamCancelled StreamStatus = "cancelled"
)

// StreamSummary terminates every stream.
type StreamSummary struct {
	ID      string       `json:"id"`
	Status  StreamStatus `json:"status"`
	Emitted int          `json:"emitted"`
}
