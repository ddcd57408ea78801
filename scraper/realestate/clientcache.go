package realestate

import (
	"strings"

	"property-hunter/models"
	"property-hunter/services"
)

const (
	clientCacheMarker = "window.ArgonautExchange="
	clientCacheApp    = "resi-property_listing-experience-web"
	searchResultsKey  = "buySearch"
)

// extractClientCache reads the urql cache the site ships inside the
// ArgonautExchange global. Each cache entry carries its query result as a
// JSON string; the buy search result holds the listings.
func extractClientCache(p *page) []models.Listing {
	block, ok := clientCacheBlock(p.content)
	if !ok {
		return nil
	}
	payload, err := decodeJSON(block)
	if err != nil {
		p.skipped++
		return nil
	}

	cacheText := stringAt(payload, clientCacheApp, "urqlClientCache")
	if cacheText == "" {
		return nil
	}
	cache, err := decodeJSON(cacheText)
	if err != nil {
		p.skipped++
		return nil
	}
	entries, ok := cache.(map[string]any)
	if !ok {
		return nil
	}

	var listings []models.Listing
	for _, key := range sortedKeys(entries) {
		data := stringAt(entries[key], "data")
		if !strings.Contains(data, searchResultsKey) {
			continue
		}
		result, err := decodeJSON(data)
		if err != nil {
			p.skipped++
			continue
		}
		items, _ := lookup(result, searchResultsKey, "results", "exact", "items").([]any)
		for _, item := range items {
			if l, ok := clientCacheListing(item); ok {
				listings = append(listings, l)
			} else {
				p.skipped++
			}
		}
	}
	return listings
}

// clientCacheBlock returns the JSON assigned to the ArgonautExchange global,
// up to the end of its script element.
func clientCacheBlock(content string) (string, bool) {
	start := strings.Index(content, clientCacheMarker)
	if start < 0 {
		return "", false
	}
	start += len(clientCacheMarker)
	end := strings.Index(content[start:], "</script>")
	if end < 0 {
		return "", false
	}
	block := strings.TrimSpace(content[start : start+end])
	return strings.TrimSuffix(block, ";"), true
}

func clientCacheListing(item any) (models.Listing, bool) {
	listing := objectAt(item, "listing")
	if listing == nil {
		return models.Listing{}, false
	}
	url := stringAt(listing, "_links", "canonical", "href")
	if strings.TrimSpace(url) == "" {
		return models.Listing{}, false
	}

	address := objectAt(listing, "address")
	priceText := stringAt(listing, "price", "display")
	priceMin, priceMax := services.NormalizePrice(priceText)

	return models.Listing{
		ID:           deriveID(listing, url),
		URL:          url,
		Title:        stringAt(address, "display", "shortAddress"),
		Address:      stringAt(address, "display", "fullAddress"),
		Suburb:       scalarText(address["suburb"]),
		State:        scalarText(address["state"]),
		Postcode:     scalarText(address["postcode"]),
		PriceText:    priceText,
		PriceMin:     priceMin,
		PriceMax:     priceMax,
		Bedrooms:     toInt(lookup(listing, "generalFeatures", "bedrooms", "value")),
		Bathrooms:    toInt(lookup(listing, "generalFeatures", "bathrooms", "value")),
		Parking:      toInt(lookup(listing, "generalFeatures", "parkingSpaces", "value")),
		PropertyType: stringAt(listing, "propertyType", "display"),
		LandSize:     landSize(objectAt(listing, "propertySizes")),
		Raw:          rawFragment(listing),
	}, true
}

// landSize reads either propertySizes.land or propertySizes.preferred.size.
func landSize(sizes map[string]any) *int {
	if land, ok := lookup(sizes, "land", "displayValue").(string); ok {
		return parseSize(land)
	}
	return parseSize(lookup(sizes, "preferred", "size", "displayValue"))
}
