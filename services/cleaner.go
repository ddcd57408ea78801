package services

import (
	"strings"
	"unicode"

	"property-hunter/models"
	"property-hunter/utils"
)

// Cleaner tidies extracted listings before they are stored.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean normalises text fields, fills in missing price bounds from the price
// text and drops listings without an ID or URL. Duplicate IDs collapse into
// the last occurrence, kept at the position of the first.
func (c *Cleaner) Clean(listings []models.Listing) []models.Listing {
	index := make(map[string]int, len(listings))
	result := make([]models.Listing, 0, len(listings))

	for _, l := range listings {
		l.ID = strings.TrimSpace(l.ID)
		l.URL = strings.TrimSpace(l.URL)
		if l.ID == "" || l.URL == "" {
			c.logger.Warn("[cleaner] Dropping listing without id or url: %q", l.Title)
			continue
		}

		l.Title = normaliseText(l.Title)
		l.Address = normaliseText(l.Address)
		l.Suburb = normaliseText(l.Suburb)
		l.State = strings.ToUpper(normaliseText(l.State))
		l.Postcode = normaliseText(l.Postcode)
		l.PriceText = normaliseText(l.PriceText)
		l.PropertyType = normaliseText(l.PropertyType)
		l.Status = normaliseText(l.Status)

		if l.PriceMin == nil && l.PriceMax == nil && l.PriceText != "" {
			l.PriceMin, l.PriceMax = NormalizePrice(l.PriceText)
		}

		if i, dup := index[l.ID]; dup {
			c.logger.Debug("[cleaner] Duplicate id %s replaced by later copy", l.ID)
			result[i] = l
			continue
		}
		index[l.ID] = len(result)
		result = append(result, l)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(listings), len(result), len(listings)-len(result))
	return result
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
