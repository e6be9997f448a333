package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// Price parsing accepts the symbol and ISO-code formats seen across the ten
// platforms. Unknown formats keep the raw text with Parsed=false; the scorer
// only uses Amount when Parsed is true.

// currencySymbols is ordered: multi-rune symbols first so "R$" wins
// over "$".
var currencySymbols = []struct {
	sym  string
	code string
}{
	{"R$", "BRL"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₽", "RUB"},
	{"¥", "CNY"},
}

var isoCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "RUB": true, "CNY": true,
	"JPY": true, "BRL": true, "MXN": true, "ARS": true, "AUD": true,
	"CAD": true, "PLN": true, "UAH": true, "ZAR": true,
}

var numberRe = regexp.MustCompile(`[0-9][0-9.,\s]*`)

// ParsePrice extracts (currency, amount) from a free-text price string.
func ParsePrice(raw string) models.Price {
	p := models.Price{Raw: strings.TrimSpace(raw)}
	if p.Raw == "" {
		return p
	}

	currency := ""
	for _, cs := range currencySymbols {
		if strings.Contains(p.Raw, cs.sym) {
			currency = cs.code
			break
		}
	}
	if currency == "" {
		upper := strings.ToUpper(p.Raw)
		for code := range isoCodes {
			if strings.Contains(upper, code) {
				currency = code
				break
			}
		}
	}

	match := numberRe.FindString(p.Raw)
	if match == "" {
		return p
	}

	amount, ok := parseAmount(match)
	if !ok {
		return p
	}

	p.Currency = currency
	p.Amount = amount
	p.Parsed = true
	return p
}

// parseAmount handles both thousands-separator conventions:
// "4,200.50" (en) and "4.200,50" (eu). A trailing group of exactly two
// digits after the last separator is treated as decimals.
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		// comma is the decimal separator (or a thousands separator)
		if len(s)-lastComma-1 == 3 && lastDot == -1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s[:lastComma], ".", "") + "." + s[lastComma+1:]
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot > lastComma:
		if len(s)-lastDot-1 == 3 && lastComma == -1 {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
