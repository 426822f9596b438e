// Package utils provides common utility functions for filingwatch.
package utils

import (
	"strings"
)

// Share-class separators users type that EDGAR spells with a dash.
var classSeparators = strings.NewReplacer(".", "-", "/", "-", " ", "-")

// NormalizeTicker normalizes a user-input ticker to the form EDGAR uses in
// company_tickers.json. It handles uppercasing, whitespace, a leading "$",
// and share-class separators ("BRK.B" and "brk/b" become "BRK-B").
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	return classSeparators.Replace(ticker)
}

// NormalizeTickers normalizes a list, dropping blanks.
func NormalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if n := NormalizeTicker(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// FormatAccession renders an accession number in its dashed form
// ("000032019324000123" becomes "0000320193-24-000123"). Other input is
// returned unchanged.
func FormatAccession(acc string) string {
	acc = strings.TrimSpace(acc)
	if len(acc) != 18 || strings.Contains(acc, "-") {
		return acc
	}
	return acc[:10] + "-" + acc[10:12] + "-" + acc[12:]
}
