package realestate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"property-hunter/models"
	"property-hunter/services"
)

const structuredDataSelector = `script[type="application/ld+json"]`

func extractStructuredData(p *page) []models.Listing {
	doc := p.document()
	if doc == nil {
		return nil
	}

	var listings []models.Listing
	doc.Find(structuredDataSelector).Each(func(_ int, s *goquery.Selection) {
		payload, err := decodeJSON(s.Text())
		if err != nil {
			p.skipped++
			return
		}
		for _, item := range structuredItems(payload) {
			if l, ok := structuredListing(item); ok {
				listings = append(listings, l)
			} else {
				p.skipped++
			}
		}
	})
	return listings
}

// structuredItems flattens a JSON-LD payload: arrays are walked, an ItemList
// contributes its elements' items and any other typed object is an item.
func structuredItems(payload any) []map[string]any {
	switch v := payload.(type) {
	case []any:
		var items []map[string]any
		for _, entry := range v {
			items = append(items, structuredItems(entry)...)
		}
		return items
	case map[string]any:
		kind := typeLabel(v["@type"])
		if kind == "ItemList" {
			var items []map[string]any
			elements, _ := v["itemListElement"].([]any)
			for _, el := range elements {
				if item := objectAt(el, "item"); item != nil {
					items = append(items, item)
				}
			}
			return items
		}
		if kind != "" {
			return []map[string]any{v}
		}
	}
	return nil
}

func structuredListing(item map[string]any) (models.Listing, bool) {
	url := absoluteURL(scalarText(item["url"]))
	if url == "" {
		return models.Listing{}, false
	}

	l := models.Listing{
		ID:           deriveID(item, url),
		URL:          url,
		Title:        scalarText(item["name"]),
		PropertyType: typeLabel(item["@type"]),
		ListedAt:     scalarText(item["datePosted"]),
		Raw:          rawFragment(item),
	}

	switch address := item["address"].(type) {
	case map[string]any:
		l.Address = formatAddress(address)
		l.Suburb = scalarText(address["addressLocality"])
		l.State = scalarText(address["addressRegion"])
		l.Postcode = scalarText(address["postalCode"])
	case string:
		l.Address = address
	}

	// An offer price is an exact amount, so a lone figure bounds both ends.
	l.PriceText = offerPrice(item)
	l.PriceMin, l.PriceMax = services.NormalizeExactPrice(l.PriceText)
	return l, true
}

// offerPrice prefers offers.price with its currency and falls back to a
// top-level price field.
func offerPrice(item map[string]any) string {
	offers := item["offers"]
	if list, ok := offers.([]any); ok && len(list) > 0 {
		offers = list[0]
	}
	if offer, ok := offers.(map[string]any); ok {
		if price := scalarText(offer["price"]); price != "" {
			return strings.TrimSpace(scalarText(offer["priceCurrency"]) + " " + price)
		}
	}
	return scalarText(item["price"])
}

// typeLabel reads @type, which is a string or a list of strings.
func typeLabel(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
