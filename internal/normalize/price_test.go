package normalize

import (
	"math"
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantCurrency string
		wantAmount   float64
		wantParsed   bool
	}{
		{"US Format", "$1,234.56", "USD", 1234.56, true},
		{"EU Format", "€1.234,56", "EUR", 1234.56, true},
		{"EU Thousands Only", "€4.200", "EUR", 4200, true},
		{"Plain Integer", "£45", "GBP", 45, true},
		{"Yuan", "¥500", "CNY", 500, true},
		{"Rubles With Space Grouping", "1 200 ₽", "RUB", 1200, true},
		{"Brazilian Real Wins Over Dollar", "R$ 99,90", "BRL", 99.90, true},
		{"ISO Code", "1500 MXN", "MXN", 1500, true},
		{"No Number", "Contact for price", "", 0, false},
		{"Empty", "", "", 0, false},
		{"Free Text", "Free", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.raw)
			if got.Parsed != tt.wantParsed {
				t.Fatalf("ParsePrice(%q).Parsed = %v, want %v", tt.raw, got.Parsed, tt.wantParsed)
			}
			if !tt.wantParsed {
				return
			}
			if got.Currency != tt.wantCurrency {
				t.Errorf("Currency = %q, want %q", got.Currency, tt.wantCurrency)
			}
			if math.Abs(got.Amount-tt.wantAmount) > 0.001 {
				t.Errorf("Amount = %v, want %v", got.Amount, tt.wantAmount)
			}
			if got.Raw == "" {
				t.Errorf("Raw must always survive parsing")
			}
		})
	}
}
