package edgar

import (
	"fmt"
	"strings"

	"github.com/seenimoa/filingwatch/pkg/models"
)

// Normalize turns the column-oriented recent-filings section into rows, in
// upstream order. The row count is the length of AccessionNumber; a missing
// or short optional column yields nil for that attribute. Nil input yields
// an empty slice. Normalize never filters, sorts or deduplicates.
func Normalize(recent *models.RecentFilings) []models.FilingRecord {
	n := recent.Len()
	out := make([]models.FilingRecord, n)
	for i := 0; i < n; i++ {
		out[i] = models.FilingRecord{
			AccessionNumber:       recent.AccessionNumber[i],
			FilingDate:            stringAt(recent.FilingDate, i),
			ReportDate:            stringAt(recent.ReportDate, i),
			AcceptanceDateTime:    stringAt(recent.AcceptanceDateTime, i),
			Act:                   stringAt(recent.Act, i),
			Form:                  stringAt(recent.Form, i),
			FileNumber:            stringAt(recent.FileNumber, i),
			FilmNumber:            stringAt(recent.FilmNumber, i),
			Items:                 stringAt(recent.Items, i),
			Size:                  int64At(recent.Size, i),
			IsXBRL:                boolAt(recent.IsXBRL, i),
			IsInlineXBRL:          boolAt(recent.IsInlineXBRL, i),
			PrimaryDocument:       stringAt(recent.PrimaryDocument, i),
			PrimaryDocDescription: stringAt(recent.PrimaryDocDescription, i),
		}
	}
	return out
}

// FilterForms keeps records whose form type is in forms, compared
// case-insensitively. An empty forms list keeps everything.
func FilterForms(records []models.FilingRecord, forms []string) []models.FilingRecord {
	set := formSet(forms)
	if len(set) == 0 {
		return records
	}
	out := make([]models.FilingRecord, 0, len(records))
	for _, r := range records {
		if set[strings.ToUpper(strings.TrimSpace(r.FormType()))] {
			out = append(out, r)
		}
	}
	return out
}

// ParseForms splits a comma-separated form list, dropping blanks.
func ParseForms(s string) []string {
	var forms []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			forms = append(forms, f)
		}
	}
	return forms
}

// CheckOrder verifies that records run most-recent-first by filing date.
// Rows without a filing date are skipped. "Latest" detection depends on
// this order, so a violation is a permanent upstream error.
func CheckOrder(records []models.FilingRecord) error {
	prev := ""
	prevIdx := -1
	for i, r := range records {
		date := r.FiledOn()
		if date == "" {
			continue
		}
		if prev != "" && date > prev {
			return &UpstreamError{
				Detail: fmt.Sprintf("recent filings out of order: row %d (%s, %s) is newer than row %d (%s)",
					i, r.AccessionNumber, date, prevIdx, prev),
			}
		}
		prev = date
		prevIdx = i
	}
	return nil
}

func formSet(forms []string) map[string]bool {
	set := make(map[string]bool, len(forms))
	for _, f := range forms {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			set[f] = true
		}
	}
	return set
}

func stringAt(col []string, i int) *string {
	if i < len(col) {
		v := col[i]
		return &v
	}
	return nil
}

func int64At(col []int64, i int) *int64 {
	if i < len(col) {
		v := col[i]
		return &v
	}
	return nil
}

func boolAt(col []int, i int) *bool {
	if i < len(col) {
		v := col[i] != 0
		return &v
	}
	return nil
}
