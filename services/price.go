package services

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var errPriceOverflow = errors.New("price overflows int64")

var (
	// priceTokenRegexp captures a number and an optional k/m magnitude suffix.
	priceTokenRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([mk])?`)

	// Phrases that mean the advertised figure (if any) is not a real price.
	nonNumericPriceMarkers = []string{"contact", "auction", "tender", "price on application", "poa"}

	upperBoundMarkers = []string{"under", "up to", "maximum"}
	lowerBoundMarkers = []string{"from", "offers over", "over", "starting"}
)

type priceDirection int

const (
	directionNone priceDirection = iota
	directionUpper
	directionLower
)

// NormalizePrice parses a free-text price description into an inclusive
// (min, max) range in whole dollars. Either bound may be nil.
//
//	"$800,000 - $850,000" → (800000, 850000)
//	"under 1.2m"          → (nil, 1200000)
//	"from $500k"          → (500000, nil)
//	"Auction"             → (nil, nil)
func NormalizePrice(text string) (min, max *int64) {
	min, max, _ = normalizePrice(text)
	return min, max
}

// NormalizeExactPrice is NormalizePrice for fields that carry an exact
// advertised amount: a lone figure with no direction keyword becomes (v, v).
func NormalizeExactPrice(text string) (min, max *int64) {
	min, max, dir := normalizePrice(text)
	if min != nil && max == nil && dir == directionNone {
		v := *min
		max = &v
	}
	return min, max
}

func normalizePrice(text string) (min, max *int64, dir priceDirection) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, directionNone
	}
	lowered := strings.ToLower(text)
	if containsAny(lowered, nonNumericPriceMarkers) {
		return nil, nil, directionNone
	}

	numbers := extractPriceNumbers(lowered)
	switch {
	case len(numbers) == 0:
		return nil, nil, directionNone
	case len(numbers) >= 2:
		return int64Ptr(numbers[0]), int64Ptr(numbers[1]), directionNone
	}

	value := numbers[0]
	if containsAny(lowered, upperBoundMarkers) {
		return nil, int64Ptr(value), directionUpper
	}
	if containsAny(lowered, lowerBoundMarkers) {
		return int64Ptr(value), nil, directionLower
	}
	return int64Ptr(value), nil, directionNone
}

func extractPriceNumbers(lowered string) []int64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(lowered)

	var numbers []int64
	for _, m := range priceTokenRegexp.FindAllStringSubmatch(cleaned, -1) {
		multiplier := int64(1)
		switch m[2] {
		case "m":
			multiplier = 1_000_000
		case "k":
			multiplier = 1_000
		}
		value, err := scaleDecimal(m[1], multiplier)
		if err != nil {
			continue
		}
		numbers = append(numbers, value)
	}
	return numbers
}

// scaleDecimal multiplies a non-negative decimal string by multiplier and
// truncates the result, without going through float64 ("2.05" * 1e6 must
// be 2050000, not 2049999).
func scaleDecimal(s string, multiplier int64) (int64, error) {
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	if n > (math.MaxInt64-multiplier)/multiplier {
		return 0, errPriceOverflow
	}
	value := n * multiplier
	scale := multiplier
	for _, d := range frac {
		scale /= 10
		if scale == 0 {
			break
		}
		value += int64(d-'0') * scale
	}
	return value, nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func int64Ptr(v int64) *int64 { return &v }
