package realestate

import (
	"strings"

	"property-hunter/models"
	"property-hunter/services"
)

const pageDataSelector = "script#__NEXT_DATA__"

// extractPageData walks the Next.js page data depth first and treats every
// object carrying a listing URL field as a listing. Keys are visited in
// sorted order.
func extractPageData(p *page) []models.Listing {
	doc := p.document()
	if doc == nil {
		return nil
	}
	text := doc.Find(pageDataSelector).First().Text()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	root, err := decodeJSON(text)
	if err != nil {
		p.skipped++
		return nil
	}

	var listings []models.Listing
	stack := []any{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := node.(type) {
		case map[string]any:
			if l, ok := pageDataListing(n); ok {
				listings = append(listings, l)
			}
			keys := sortedKeys(n)
			for i := len(keys) - 1; i >= 0; i-- {
				stack = append(stack, n[keys[i]])
			}
		case []any:
			for i := len(n) - 1; i >= 0; i-- {
				stack = append(stack, n[i])
			}
		}
	}
	return listings
}

func pageDataListing(obj map[string]any) (models.Listing, bool) {
	url := absoluteURL(firstString(obj, "seoUrl", "url", "listingUrl"))
	if url == "" {
		return models.Listing{}, false
	}

	priceText := firstString(obj, "price", "priceText")
	priceMin, priceMax := services.NormalizePrice(priceText)

	l := models.Listing{
		ID:           deriveID(obj, url),
		URL:          url,
		Title:        firstString(obj, "displayableAddress", "title"),
		Suburb:       scalarText(obj["suburb"]),
		State:        scalarText(obj["state"]),
		Postcode:     scalarText(obj["postcode"]),
		PriceText:    priceText,
		PriceMin:     priceMin,
		PriceMax:     priceMax,
		Bedrooms:     firstInt(obj, "bedrooms", "beds"),
		Bathrooms:    firstInt(obj, "bathrooms", "baths"),
		Parking:      firstInt(obj, "parking", "carSpaces"),
		PropertyType: scalarText(obj["propertyType"]),
		LandSize:     parseSize(obj["landSize"]),
		Status:       scalarText(obj["status"]),
		ListedAt:     scalarText(obj["dateListed"]),
		Raw:          rawFragment(obj),
	}
	switch address := obj["address"].(type) {
	case string:
		l.Address = address
	case map[string]any:
		l.Address = formatAddress(address)
	}
	return l, true
}
