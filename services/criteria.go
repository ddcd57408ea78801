package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"property-hunter/models"
)

var (
	// radiusRegexp matches "<n> km <to|from|of> <place>".
	radiusRegexp = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*km\s+(?:to|from|of)\s+([a-z][a-z'\s-]*)`)
	// inSuburbRegexp is the fallback "in <words>" suburb pattern.
	inSuburbRegexp = regexp.MustCompile(`(?i)\bin\s+([a-z\s]+)`)
	bedroomRegexp  = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|beds|bedroom|bedrooms)\b`)

	// pricePhraseRegexps are tried in order; the first match is normalized.
	pricePhraseRegexps = []*regexp.Regexp{
		regexp.MustCompile(`(?:under|over|from|between|up to|maximum)\s+\$?\s*\d[\d,.]*\s*[mk]?` +
			`(?:\s*(?:-|to|and)\s*\$?\s*\d[\d,.]*\s*[mk]?)?`),
		regexp.MustCompile(`\$\s*\d[\d,.]*\s*[mk]?(?:\s*(?:-|to|and)\s*\$?\s*\d[\d,.]*\s*[mk]?)?`),
		regexp.MustCompile(`\d+(?:\.\d+)?\s*[mk]\b(?:\s*(?:-|to|and)\s*\d+(?:\.\d+)?\s*[mk])?`),
	}

	// Words that end a free-form place phrase.
	placeStopWords = map[string]bool{
		"under": true, "over": true, "from": true, "between": true, "with": true,
	}

	// placeBoundaryWords also ends a place phrase that matched no suburb.
	placeBoundaryWords = map[string]bool{
		"under": true, "over": true, "from": true, "between": true, "with": true,
		"house": true, "townhouse": true, "apartment": true, "unit": true, "villa": true, "land": true,
		"bed": true, "beds": true, "bedroom": true, "bedrooms": true,
	}
)

type propertyTypeKeyword struct {
	pattern *regexp.Regexp
	label   string
}

var propertyTypeKeywords = []propertyTypeKeyword{
	{regexp.MustCompile(`(?i)\bhouse\b`), "House"},
	{regexp.MustCompile(`(?i)\btownhouse\b`), "Townhouse"},
	{regexp.MustCompile(`(?i)\bapartment\b`), "Apartment"},
	{regexp.MustCompile(`(?i)\bunit\b`), "Unit"},
	{regexp.MustCompile(`(?i)\bvilla\b`), "Villa"},
	{regexp.MustCompile(`(?i)\bland\b`), "Land"},
}

// CriteriaExtractor turns a free-text property query into SearchCriteria.
type CriteriaExtractor struct {
	suburbs []string
}

// NewCriteriaExtractor creates an extractor that resolves suburbs against
// the reference gazetteer.
func NewCriteriaExtractor(ref *ReferenceData) *CriteriaExtractor {
	return &CriteriaExtractor{suburbs: ref.Suburbs()}
}

// Parse never fails: anything it cannot recognise is left nil.
//
//	"3 bed townhouse in Glen Iris under $2m"
//	  → suburb Glen Iris, 3 bedrooms, Townhouse, max 2000000
//	"10km from Glen Iris"
//	  → suburb Glen Iris, radius 10
func (e *CriteriaExtractor) Parse(text string) models.SearchCriteria {
	var c models.SearchCriteria

	rest := text
	if radius, place, remaining, ok := e.extractRadius(text); ok {
		c.RadiusKm = &radius
		c.Suburb = &place
		rest = remaining
	}

	if c.Suburb == nil {
		if suburb, _, ok := e.matchSuburb(rest); ok {
			c.Suburb = &suburb
		} else if suburb, ok := extractInSuburb(rest); ok {
			c.Suburb = &suburb
		}
	}

	c.Bedrooms = extractBedrooms(rest)
	c.PropertyType = extractPropertyType(rest)
	if phrase := extractPricePhrase(rest); phrase != "" {
		c.PriceMin, c.PriceMax = NormalizePrice(phrase)
	}
	return c
}

// extractRadius finds a radius query, resolves its place and returns the
// text with the radius phrase removed. Only the place itself is consumed so
// that type and bedroom words after it still reach the other extractors.
func (e *CriteriaExtractor) extractRadius(text string) (float64, string, string, bool) {
	m := radiusRegexp.FindStringSubmatchIndex(text)
	if m == nil {
		return 0, "", text, false
	}
	radius, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if err != nil {
		return 0, "", text, false
	}

	capture := text[m[4]:m[5]]
	_, consumed := cutPlacePhrase(capture, placeStopWords)
	place, matchEnd, ok := e.matchSuburb(capture[:consumed])
	if ok {
		consumed = matchEnd
	} else {
		var phrase string
		phrase, consumed = cutPlacePhrase(capture, placeBoundaryWords)
		if phrase == "" {
			return 0, "", text, false
		}
		place = titleCaseWords(phrase)
	}
	end := m[4] + consumed
	return radius, place, text[:m[0]] + " " + text[end:], true
}

// matchSuburb returns the longest gazetteer name that occurs in text as a
// whole word, ignoring ASCII case, and the byte offset just past it.
func (e *CriteriaExtractor) matchSuburb(text string) (string, int, bool) {
	lowered := asciiLower(text)
	best, bestEnd := "", 0
	for _, name := range e.suburbs {
		if len(name) <= len(best) {
			continue
		}
		if end := wordEnd(lowered, asciiLower(name)); end >= 0 {
			best, bestEnd = name, end
		}
	}
	return best, bestEnd, best != ""
}

// wordEnd returns the offset just past the first whole-word occurrence of
// word in text, or -1.
func wordEnd(text, word string) int {
	if word == "" {
		return -1
	}
	for offset := 0; offset <= len(text)-len(word); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(word)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return end
		}
		offset = start + 1
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// asciiLower lowercases ASCII letters only, keeping byte offsets stable.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// cutPlacePhrase trims a captured place phrase at the first word in stop
// and reports how many bytes of the input it consumed.
func cutPlacePhrase(s string, stop map[string]bool) (string, int) {
	var words []string
	consumed := 0
	pos := 0
	for _, w := range strings.Fields(s) {
		idx := strings.Index(s[pos:], w) + pos
		if stop[strings.ToLower(w)] {
			break
		}
		words = append(words, w)
		pos = idx + len(w)
		consumed = pos
	}
	return strings.Join(words, " "), consumed
}

func extractInSuburb(text string) (string, bool) {
	m := inSuburbRegexp.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	phrase, _ := cutPlacePhrase(m[1], placeBoundaryWords)
	if phrase == "" {
		return "", false
	}
	return titleCaseWords(phrase), true
}

func extractBedrooms(text string) *int {
	var best *int
	for _, m := range bedroomRegexp.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if best == nil || n > *best {
			v := n
			best = &v
		}
	}
	return best
}

func extractPropertyType(text string) *string {
	for _, kw := range propertyTypeKeywords {
		if kw.pattern.MatchString(text) {
			label := kw.label
			return &label
		}
	}
	return nil
}

func extractPricePhrase(text string) string {
	lowered := strings.ToLower(text)
	for _, re := range pricePhraseRegexps {
		if m := re.FindString(lowered); m != "" {
			return m
		}
	}
	return ""
}

func titleCaseWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
