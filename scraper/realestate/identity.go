package realestate

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	idFields = []string{"id", "listingId", "adId", "propertyId"}

	// propertyURLRegexp captures the numeric id at the end of a
	// /property-<slug>-<digits> path segment.
	propertyURLRegexp = regexp.MustCompile(`/property-[^/]+-(\d+)`)

	integerRegexp = regexp.MustCompile(`^-?\d+$`)
)

// deriveID returns a listing identity that is stable across extractions:
// an explicit id field, else the numeric id in the URL, else the SHA-1 of the URL.
func deriveID(fields map[string]any, url string) string {
	for _, key := range idFields {
		switch v := fields[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case json.Number:
			if integerRegexp.MatchString(v.String()) {
				return v.String()
			}
		}
	}
	if m := propertyURLRegexp.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}
