package models

import "time"

// SearchCriteria is the filter intent parsed from free text. A nil field
// means no constraint. When RadiusKm is set, Suburb is the center.
type SearchCriteria struct {
	Suburb       *string  `json:"suburb,omitempty" yaml:"suburb,omitempty"`
	PriceMin     *int64   `json:"price_min,omitempty" yaml:"price_min,omitempty"`
	PriceMax     *int64   `json:"price_max,omitempty" yaml:"price_max,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	PropertyType *string  `json:"property_type,omitempty" yaml:"property_type,omitempty"`
	RadiusKm     *float64 `json:"radius_km,omitempty" yaml:"radius_km,omitempty"`
}

// Filter converts the criteria into a store query.
func (c SearchCriteria) Filter(limit int) ListingFilter {
	f := ListingFilter{
		PriceMin: c.PriceMin,
		PriceMax: c.PriceMax,
		Bedrooms: c.Bedrooms,
		Limit:    limit,
	}
	if c.Suburb != nil {
		f.Suburb = *c.Suburb
	}
	if c.PropertyType != nil {
		f.PropertyType = *c.PropertyType
	}
	return f
}

// SavedSearch is a stored query that is re-run periodically and mailed out.
type SavedSearch struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Criteria  string     `db:"criteria_json"`
	Schedule  string     `db:"schedule"`
	Email     string     `db:"email"`
	LastRunAt *time.Time `db:"last_run_at"`
}
