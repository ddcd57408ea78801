package services

import (
	"bytes"
	"strings"
	"testing"

	"property-hunter/models"
)

func sampleListings() []models.Listing {
	return []models.Listing{
		{ID: "1", Title: "House A", Suburb: "Richmond", PriceMin: int64Ptr(1200000), PriceText: "$1.2m"},
		{ID: "2", Title: "Unit B", Suburb: "Richmond", PriceMin: int64Ptr(600000), PriceText: "$600k"},
		{ID: "3", Title: "House C", Suburb: "Glen Iris", PriceMin: int64Ptr(2400000), PriceText: "$2.4m"},
		{ID: "4", Title: "Villa D", Suburb: "Glen Iris", PriceText: "Contact agent"},
		{ID: "5", Title: "Land E", Suburb: "Nowhere"},
		{ID: "6", Title: "Flat F", PriceMin: int64Ptr(300000)},
	}
}

func insightGeo() *GeoMatcher {
	profiles := testProfiles()
	profiles[0].MedianPrice = int64Ptr(2000000) // Glen Iris
	profiles[3].MedianPrice = int64Ptr(1000000) // Richmond
	return NewGeoMatcher(NewReferenceData(nil, profiles))
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(insightGeo(), newTestLogger())
	r := svc.Generate(sampleListings())
	if r.TotalListings != 6 {
		t.Errorf("TotalListings: got %d, want 6", r.TotalListings)
	}
	if r.PricedListings != 4 {
		t.Errorf("PricedListings: got %d, want 4", r.PricedListings)
	}
	if r.ListingsBySuburb["Richmond"] != 2 || r.ListingsBySuburb["Glen Iris"] != 2 {
		t.Errorf("ListingsBySuburb: got %v", r.ListingsBySuburb)
	}
	if _, ok := r.ListingsBySuburb[""]; ok {
		t.Errorf("listings without a suburb should not be grouped")
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(nil, newTestLogger())
	r := svc.Generate(sampleListings())
	if r.AveragePrice != 1125000 {
		t.Errorf("AveragePrice: got %.2f, want 1125000", r.AveragePrice)
	}
	if r.MinPrice != 300000 {
		t.Errorf("MinPrice: got %d, want 300000", r.MinPrice)
	}
	if r.MaxPrice != 2400000 {
		t.Errorf("MaxPrice: got %d, want 2400000", r.MaxPrice)
	}
	if r.MostExpensive == nil || r.MostExpensive.Title != "House C" {
		t.Errorf("MostExpensive: got %+v, want House C", r.MostExpensive)
	}
}

func TestInsightSuburbMarkets(t *testing.T) {
	svc := NewInsightService(insightGeo(), newTestLogger())
	r := svc.Generate(sampleListings())

	if len(r.SuburbMarkets) != 3 {
		t.Fatalf("SuburbMarkets len: got %d, want 3", len(r.SuburbMarkets))
	}
	glen, nowhere, richmond := r.SuburbMarkets[0], r.SuburbMarkets[1], r.SuburbMarkets[2]

	if glen.Suburb != "Glen Iris" || glen.Listings != 2 || glen.AveragePrice != 2400000 {
		t.Errorf("Glen Iris market: got %+v", glen)
	}
	if glen.DeltaPct == nil || *glen.DeltaPct != 20 {
		t.Errorf("Glen Iris DeltaPct: got %v, want 20", glen.DeltaPct)
	}

	if nowhere.Suburb != "Nowhere" || nowhere.MedianPrice != nil || nowhere.DeltaPct != nil {
		t.Errorf("unprofiled suburb: got %+v", nowhere)
	}

	if richmond.AveragePrice != 900000 {
		t.Errorf("Richmond AveragePrice: got %.2f, want 900000", richmond.AveragePrice)
	}
	if richmond.DeltaPct == nil || *richmond.DeltaPct != -10 {
		t.Errorf("Richmond DeltaPct: got %v, want -10", richmond.DeltaPct)
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(nil, newTestLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
	if r.MostExpensive != nil {
		t.Errorf("expected no most expensive listing")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(insightGeo(), newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleListings()))

	out := buf.String()
	for _, want := range []string{"Total listings  : \033[1m6", "$1,125,000", "House C", "+20.0% vs median $2,000,000"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q", want)
		}
	}
}

func TestFormatDollars(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0"},
		{950, "$950"},
		{1000, "$1,000"},
		{1125000, "$1,125,000"},
		{999.6, "$1,000"},
		{-950, "-$950"},
		{-123456, "-$123,456"},
		{-1125000.4, "-$1,125,000"},
		{-0.4, "$0"},
	}
	for _, tt := range tests {
		if got := formatDollars(tt.in); got != tt.want {
			t.Errorf("formatDollars(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
