package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecentFilingsLen(t *testing.T) {
	var nilRecent *RecentFilings
	if nilRecent.Len() != 0 {
		t.Errorf("nil Len = %d", nilRecent.Len())
	}
	r := &RecentFilings{AccessionNumber: []string{"a", "b"}, Form: []string{"10-K"}}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2 (accession column defines row count)", r.Len())
	}
}

func TestSubmissionsSnapshotDecode(t *testing.T) {
	raw := `{"cik":"320193","name":"Apple Inc.","tickers":["AAPL"],
	"filings":{"recent":{"accessionNumber":["0000320193-24-000123"],"form":["10-K"],
	"isXBRL":[1],"size":[1024]},"files":[{"name":"p1.json","filingCount":40}]}}`

	var snap SubmissionsSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if snap.Filings.Recent.Len() != 1 {
		t.Errorf("recent = %d", snap.Filings.Recent.Len())
	}
	if snap.Filings.Recent.FilingDate != nil {
		t.Errorf("absent column decoded as %v, want nil", snap.Filings.Recent.FilingDate)
	}
	if len(snap.Filings.Files) != 1 || snap.Filings.Files[0].FilingCount != 40 {
		t.Errorf("files = %+v", snap.Filings.Files)
	}
}

func TestFilingRecordAbsentAttributesEncodeNull(t *testing.T) {
	data, err := json.Marshal(FilingRecord{AccessionNumber: "0000320193-24-000123"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, field := range []string{`"filingDate":null`, `"form":null`, `"reportDate":null`, `"size":null`, `"primaryDocument":null`} {
		if !strings.Contains(s, field) {
			t.Errorf("missing %s in %s", field, s)
		}
	}
}
