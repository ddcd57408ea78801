package services

import (
	"strconv"
	"testing"
)

func fmtBound(v *int64) string {
	if v == nil {
		return "nil"
	}
	return strconv.FormatInt(*v, 10)
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		raw      string
		min, max string
	}{
		{"$800,000 - $850,000", "800000", "850000"},
		{"under 1.2m", "nil", "1200000"},
		{"Auction", "nil", "nil"},
		{"from $500k", "500000", "nil"},
		{"", "nil", "nil"},
		{"   ", "nil", "nil"},
		{"Auction guide $1.2m", "nil", "nil"},
		{"Contact agent", "nil", "nil"},
		{"Price on application", "nil", "nil"},
		{"POA", "nil", "nil"},
		{"Expressions of interest - Tender", "nil", "nil"},
		{"Offers over $650,000", "650000", "nil"},
		{"Up to $900k", "nil", "900000"},
		{"Maximum 750k", "nil", "750000"},
		{"Starting at $420,000", "420000", "nil"},
		{"$1,000,000", "1000000", "nil"},
		{"$2.05m", "2050000", "nil"},
		{"$700k - $770k", "700000", "770000"},
		{"$1.1m $1.2m $1.3m", "1100000", "1200000"},
		{"$649,999.99", "649999", "nil"},
		{"Just listed", "nil", "nil"},
		{"$10000000000000m", "nil", "nil"},
		{"$10000000000000m - $900k", "900000", "nil"},
		{"99999999999999999999", "nil", "nil"},
	}

	for _, tt := range tests {
		min, max := NormalizePrice(tt.raw)
		if got := fmtBound(min); got != tt.min {
			t.Errorf("NormalizePrice(%q) min = %s; want %s", tt.raw, got, tt.min)
		}
		if got := fmtBound(max); got != tt.max {
			t.Errorf("NormalizePrice(%q) max = %s; want %s", tt.raw, got, tt.max)
		}
	}
}

func TestNormalizeExactPrice(t *testing.T) {
	tests := []struct {
		raw      string
		min, max string
	}{
		{"$1,000,000", "1000000", "1000000"},
		{"AUD 850000", "850000", "850000"},
		{"from $500k", "500000", "nil"},
		{"under $2m", "nil", "2000000"},
		{"$1m - $1.1m", "1000000", "1100000"},
		{"Auction", "nil", "nil"},
	}

	for _, tt := range tests {
		min, max := NormalizeExactPrice(tt.raw)
		if got := fmtBound(min); got != tt.min {
			t.Errorf("NormalizeExactPrice(%q) min = %s; want %s", tt.raw, got, tt.min)
		}
		if got := fmtBound(max); got != tt.max {
			t.Errorf("NormalizeExactPrice(%q) max = %s; want %s", tt.raw, got, tt.max)
		}
	}
}
