package models

import (
	"encoding/json"
	"time"
)

// Listing is one normalized property advertisement. ID and URL are always set;
// every other field is best-effort.
type Listing struct {
	ID           string          `json:"id" db:"id"`
	URL          string          `json:"url" db:"url"`
	Title        string          `json:"title,omitempty" db:"title"`
	Address      string          `json:"address,omitempty" db:"address"`
	Suburb       string          `json:"suburb,omitempty" db:"suburb"`
	State        string          `json:"state,omitempty" db:"state"`
	Postcode     string          `json:"postcode,omitempty" db:"postcode"`
	PriceText    string          `json:"price_text,omitempty" db:"price_text"`
	PriceMin     *int64          `json:"price_min,omitempty" db:"price_min"`
	PriceMax     *int64          `json:"price_max,omitempty" db:"price_max"`
	Bedrooms     *int            `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms    *int            `json:"bathrooms,omitempty" db:"bathrooms"`
	Parking      *int            `json:"parking,omitempty" db:"parking"`
	PropertyType string          `json:"property_type,omitempty" db:"property_type"`
	LandSize     *int            `json:"land_size,omitempty" db:"land_size"`
	Status       string          `json:"status,omitempty" db:"listing_status"`
	ListedAt     string          `json:"listed_at,omitempty" db:"listed_at"`
	ScrapedAt    time.Time       `json:"scraped_at" db:"scraped_at"`
	Raw          json.RawMessage `json:"raw,omitempty" db:"raw_json"`
}

// ListingFilter is the query shape accepted by the listing store. Nil fields
// and empty strings mean "no constraint".
type ListingFilter struct {
	Suburb       string
	Suburbs      []string
	PriceMin     *int64
	PriceMax     *int64
	Bedrooms     *int
	PropertyType string
	Since        *time.Time
	Limit        int
}

// InsightReport summarises one ingest run.
type InsightReport struct {
	TotalListings    int
	PricedListings   int
	AveragePrice     float64
	MinPrice         int64
	MaxPrice         int64
	MostExpensive    *Listing
	ListingsBySuburb map[string]int
	SuburbMarkets    []SuburbMarket
}

// SuburbMarket compares the asking prices seen in one suburb with the
// suburb's reference median.
type SuburbMarket struct {
	Suburb       string
	Listings     int
	AveragePrice float64
	MedianPrice  *int64
	// DeltaPct is the average asking price relative to the median, in percent.
	DeltaPct *float64
}
