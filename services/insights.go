package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"property-hunter/models"
	"property-hunter/utils"
)

type InsightService struct {
	geo    *GeoMatcher
	logger *utils.Logger
}

// NewInsightService creates an InsightService. geo may be nil, in which case
// suburb markets carry no reference median.
func NewInsightService(geo *GeoMatcher, logger *utils.Logger) *InsightService {
	return &InsightService{geo: geo, logger: logger}
}

func (s *InsightService) Generate(listings []models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsBySuburb: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	type suburbTotals struct {
		listings int
		priced   int
		sum      float64
	}
	bySuburb := make(map[string]*suburbTotals)

	var total float64
	for i := range listings {
		l := &listings[i]
		if l.Suburb != "" {
			report.ListingsBySuburb[l.Suburb]++
			if bySuburb[l.Suburb] == nil {
				bySuburb[l.Suburb] = &suburbTotals{}
			}
			bySuburb[l.Suburb].listings++
		}
		if l.PriceMin == nil || *l.PriceMin <= 0 {
			continue
		}

		price := *l.PriceMin
		report.PricedListings++
		total += float64(price)
		if report.PricedListings == 1 || price < report.MinPrice {
			report.MinPrice = price
		}
		if report.PricedListings == 1 || price > report.MaxPrice {
			report.MaxPrice = price
			report.MostExpensive = l
		}
		if st := bySuburb[l.Suburb]; st != nil {
			st.priced++
			st.sum += float64(price)
		}
	}
	if report.PricedListings > 0 {
		report.AveragePrice = round2(total / float64(report.PricedListings))
	}

	suburbs := make([]string, 0, len(bySuburb))
	for name := range bySuburb {
		suburbs = append(suburbs, name)
	}
	sort.Strings(suburbs)

	for _, name := range suburbs {
		st := bySuburb[name]
		market := models.SuburbMarket{Suburb: name, Listings: st.listings}
		if st.priced > 0 {
			market.AveragePrice = round2(st.sum / float64(st.priced))
		}
		if s.geo != nil {
			if profile, ok := s.geo.Find(name); ok && profile.MedianPrice != nil && *profile.MedianPrice > 0 {
				median := *profile.MedianPrice
				market.MedianPrice = &median
				if st.priced > 0 {
					delta := round2((market.AveragePrice - float64(median)) / float64(median) * 100)
					market.DeltaPct = &delta
				}
			}
		}
		report.SuburbMarkets = append(report.SuburbMarkets, market)
	}

	s.logger.Debug("[insights] %d listings, %d priced, %d suburbs",
		report.TotalListings, report.PricedListings, len(report.SuburbMarkets))
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 LISTING INGEST INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings  : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Priced listings : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Asking Prices (lower bound)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", formatDollars(r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", formatDollars(float64(r.MinPrice)))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", formatDollars(float64(r.MaxPrice)))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Suburb : %s\n", r.MostExpensive.Suburb)
		fmt.Fprintf(w, "  Price  : \033[1;31m%s\033[0m\n", r.MostExpensive.PriceText)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Suburb Markets\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.SuburbMarkets) == 0 {
		fmt.Fprintf(w, "  No suburb data\n")
	}
	for _, m := range r.SuburbMarkets {
		line := fmt.Sprintf("  %-22s %3d listings", truncate(m.Suburb, 20), m.Listings)
		if m.AveragePrice > 0 {
			line += "  avg " + formatDollars(m.AveragePrice)
		}
		if m.DeltaPct != nil {
			line += fmt.Sprintf("  (%+.1f%% vs median %s)", *m.DeltaPct, formatDollars(float64(*m.MedianPrice)))
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// formatDollars renders whole dollars with thousands separators.
func formatDollars(v float64) string {
	digits := fmt.Sprintf("%d", int64(math.Round(v)))
	sign := ""
	if rest, ok := strings.CutPrefix(digits, "-"); ok {
		sign, digits = "-", rest
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
