package edgar

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/seenimoa/filingwatch/pkg/models"
)

func strp(s string) *string { return &s }

func TestNormalizeNil(t *testing.T) {
	got := Normalize(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Normalize(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestNormalizePositional(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 50} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			recent := &models.RecentFilings{}
			for i := 0; i < n; i++ {
				recent.AccessionNumber = append(recent.AccessionNumber, fmt.Sprintf("acc-%d", i))
				recent.FilingDate = append(recent.FilingDate, fmt.Sprintf("2024-01-%02d", 28-i%28))
				recent.Form = append(recent.Form, fmt.Sprintf("F%d", i))
				recent.Size = append(recent.Size, int64(i*10))
				recent.IsXBRL = append(recent.IsXBRL, i%2)
			}
			// A short column: only the first half of rows carry a document.
			for i := 0; i < n/2; i++ {
				recent.PrimaryDocument = append(recent.PrimaryDocument, fmt.Sprintf("doc%d.htm", i))
			}

			got := Normalize(recent)
			if len(got) != n {
				t.Fatalf("len = %d, want %d", len(got), n)
			}
			for i, r := range got {
				if r.AccessionNumber != recent.AccessionNumber[i] || r.FormType() != recent.Form[i] || r.FiledOn() != recent.FilingDate[i] {
					t.Errorf("row %d = %+v", i, r)
				}
				if r.Size == nil || *r.Size != int64(i*10) {
					t.Errorf("row %d size = %v", i, r.Size)
				}
				if r.IsXBRL == nil || *r.IsXBRL != (i%2 == 1) {
					t.Errorf("row %d isXBRL = %v", i, r.IsXBRL)
				}
				if r.ReportDate != nil || r.Items != nil || r.IsInlineXBRL != nil {
					t.Errorf("row %d: absent columns must be nil", i)
				}
				if i < n/2 {
					if r.PrimaryDocument == nil || *r.PrimaryDocument != recent.PrimaryDocument[i] {
						t.Errorf("row %d primaryDocument = %v", i, r.PrimaryDocument)
					}
				} else if r.PrimaryDocument != nil {
					t.Errorf("row %d primaryDocument = %q, want nil", i, *r.PrimaryDocument)
				}
			}
		})
	}
}

func TestNormalizeAbsentDateAndForm(t *testing.T) {
	got := Normalize(&models.RecentFilings{
		AccessionNumber: []string{"0000320193-24-000123", "0000320193-24-000100"},
		FilingDate:      []string{"2024-11-01"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].FiledOn() != "2024-11-01" || got[0].Form != nil {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[1].FilingDate != nil || got[1].Form != nil {
		t.Errorf("row 1 should carry no date or form: %+v", got[1])
	}
	data, err := json.Marshal(got[1])
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"filingDate":null`, `"form":null`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("missing %s in %s", field, data)
		}
	}
}

func TestNormalizeKeepsDuplicates(t *testing.T) {
	recent := &models.RecentFilings{
		AccessionNumber: []string{"a", "a", "b"},
		Form:            []string{"8-K", "8-K", "10-Q"},
	}
	if got := Normalize(recent); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestFilterForms(t *testing.T) {
	records := []models.FilingRecord{
		{AccessionNumber: "1", Form: strp("10-K")},
		{AccessionNumber: "2", Form: strp("8-K")},
		{AccessionNumber: "3", Form: strp("10-Q")},
		{AccessionNumber: "4", Form: strp("8-k")},
		{AccessionNumber: "5"},
	}
	tests := []struct {
		name  string
		forms []string
		want  []string
	}{
		{"empty keeps all", nil, []string{"1", "2", "3", "4", "5"}},
		{"blank entries ignored", []string{" ", ""}, []string{"1", "2", "3", "4", "5"}},
		{"case insensitive", []string{"8-K"}, []string{"2", "4"}},
		{"lower query", []string{"10-k", "10-q"}, []string{"1", "3"}},
		{"no match", []string{"S-1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterForms(records, tt.forms)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.AccessionNumber != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, r.AccessionNumber, tt.want[i])
				}
			}
		})
	}
}

func TestParseForms(t *testing.T) {
	got := ParseForms(" 8-K, ,10-Q,")
	if len(got) != 2 || got[0] != "8-K" || got[1] != "10-Q" {
		t.Errorf("ParseForms = %q", got)
	}
	if got := ParseForms(""); len(got) != 0 {
		t.Errorf("ParseForms(\"\") = %q", got)
	}
}

func TestCheckOrder(t *testing.T) {
	tests := []struct {
		name    string
		dates   []string
		wantErr bool
	}{
		{"empty", nil, false},
		{"descending", []string{"2024-11-01", "2024-08-02", "2024-05-03"}, false},
		{"ties", []string{"2024-11-01", "2024-11-01"}, false},
		{"missing dates skipped", []string{"2024-11-01", "", "2024-10-01"}, false},
		{"ascending", []string{"2024-05-03", "2024-08-02"}, true},
		{"violation past gap", []string{"2024-05-03", "", "2024-06-01"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]models.FilingRecord, len(tt.dates))
			for i, d := range tt.dates {
				records[i] = models.FilingRecord{AccessionNumber: fmt.Sprint(i)}
				if d != "" {
					records[i].FilingDate = strp(d)
				}
			}
			err := CheckOrder(records)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckOrder error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsPermanent(err) {
				t.Errorf("ordering error must be permanent, got %v", err)
			}
		})
	}
}
