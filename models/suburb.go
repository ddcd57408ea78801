package models

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// SuburbProfile is static reference geography for one suburb.
type SuburbProfile struct {
	Suburb      string  `json:"suburb"`
	State       string  `json:"state"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MedianPrice *int64  `json:"median_price,omitempty"`
	MedianRent  *int64  `json:"median_rent,omitempty"`
}

// Point returns the profile's coordinates.
func (p SuburbProfile) Point() Point {
	return Point{Lat: p.Latitude, Lon: p.Longitude}
}
