package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonAmountChars = regexp.MustCompile(`[^\d.,]`)
	taxIDPunct     = regexp.MustCompile(`[./-]`)
	statePattern   = regexp.MustCompile(`\.([a-z]{2})\.gov\.br`)
)

// afterColon reduces a labeled field ("Qtde.: 2") to the value after the last
// colon. Text without a colon comes back whole, trimmed either way.
func afterColon(s string) string {
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return strings.TrimSpace(s)
}

// parseAmount converts Brazilian-formatted currency and quantity text to a
// float. Everything but digits, dots, and commas is stripped; a comma, when
// present, is the decimal separator and dots are thousands separators.
// Empty or unparseable text degrades to 0.
func parseAmount(s string) float64 {
	cleaned := nonAmountChars.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// normalizeTaxID reduces a labeled CNPJ/CPF field to bare digits.
func normalizeTaxID(s string) string {
	return taxIDPunct.ReplaceAllString(afterColon(s), "")
}

// stateFromURL derives the two-letter state code from a state tax authority
// domain such as fazenda.sp.gov.br. Unknown hosts yield "".
func stateFromURL(url string) string {
	match := statePattern.FindStringSubmatch(strings.ToLower(url))
	if match == nil {
		return ""
	}
	return strings.ToUpper(match[1])
}
