package services

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"property-hunter/models"
	"property-hunter/utils"
)

//go:embed data/suburbs_vic.txt
var bundledSuburbs []byte

//go:embed data/suburb_profiles.csv
var bundledProfiles []byte

// ReferenceOptions points at optional user-supplied reference files that are
// loaded after the bundled defaults.
type ReferenceOptions struct {
	SuburbsPath  string
	ProfilesPath string
	Logger       *utils.Logger
}

// ReferenceData is the suburb gazetteer plus suburb profiles. It is built once
// at startup and never mutated, so it can be shared across goroutines.
type ReferenceData struct {
	suburbs  []string
	profiles []models.SuburbProfile
}

// NewReferenceData builds reference data from in-memory values. Names are
// unique case-insensitively; the first occurrence wins.
func NewReferenceData(suburbs []string, profiles []models.SuburbProfile) *ReferenceData {
	r := &ReferenceData{}
	seenProfiles := make(map[string]struct{})
	for _, p := range profiles {
		key := strings.ToLower(p.Suburb)
		if _, dup := seenProfiles[key]; dup {
			continue
		}
		seenProfiles[key] = struct{}{}
		r.profiles = append(r.profiles, p)
	}

	seenNames := make(map[string]struct{})
	addName := func(name string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" {
			return
		}
		if _, dup := seenNames[key]; dup {
			return
		}
		seenNames[key] = struct{}{}
		r.suburbs = append(r.suburbs, name)
	}
	for _, s := range suburbs {
		addName(s)
	}
	for _, p := range r.profiles {
		addName(p.Suburb)
	}
	return r
}

// LoadReferenceData loads the bundled gazetteer and profiles, then the
// optional external files. A configured path that does not exist is logged
// and skipped.
func LoadReferenceData(opts ReferenceOptions) (*ReferenceData, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	suburbs := readSuburbNames(bytes.NewReader(bundledSuburbs))
	profiles, skipped, err := readProfiles(bytes.NewReader(bundledProfiles))
	if err != nil {
		return nil, fmt.Errorf("refdata: bundled profiles: %w", err)
	}
	if skipped > 0 {
		logger.Warn("[refdata] Skipped %d malformed bundled profile rows", skipped)
	}

	if opts.SuburbsPath != "" {
		extra, err := readFile(opts.SuburbsPath, func(r io.Reader) ([]string, error) {
			return readSuburbNames(r), nil
		})
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("[refdata] Suburbs file %s not found, using bundled list only", opts.SuburbsPath)
		case err != nil:
			return nil, fmt.Errorf("refdata: suburbs %q: %w", opts.SuburbsPath, err)
		default:
			suburbs = append(suburbs, extra...)
		}
	}

	if opts.ProfilesPath != "" {
		var extraSkipped int
		extra, err := readFile(opts.ProfilesPath, func(r io.Reader) ([]models.SuburbProfile, error) {
			p, n, err := readProfiles(r)
			extraSkipped = n
			return p, err
		})
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("[refdata] Profiles file %s not found, using bundled profiles only", opts.ProfilesPath)
		case err != nil:
			return nil, fmt.Errorf("refdata: profiles %q: %w", opts.ProfilesPath, err)
		default:
			profiles = append(profiles, extra...)
			if extraSkipped > 0 {
				logger.Warn("[refdata] Skipped %d malformed rows in %s", extraSkipped, opts.ProfilesPath)
			}
		}
	}

	ref := NewReferenceData(suburbs, profiles)
	logger.Info("[refdata] Loaded %d gazetteer names, %d suburb profiles", len(ref.suburbs), len(ref.profiles))
	return ref, nil
}

// Suburbs returns the gazetteer names in load order.
func (r *ReferenceData) Suburbs() []string {
	return r.suburbs
}

// Profiles returns the suburb profiles in load order.
func (r *ReferenceData) Profiles() []models.SuburbProfile {
	return r.profiles
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return parse(f)
}

func readSuburbNames(r io.Reader) []string {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// readProfiles parses suburb,state,latitude,longitude,median_price,median_rent
// rows by header name. Rows missing a suburb or with unparseable coordinates
// are skipped and counted.
func readProfiles(r io.Reader) ([]models.SuburbProfile, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"suburb", "latitude", "longitude"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var profiles []models.SuburbProfile
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read row: %w", err)
		}

		suburb := field(row, "suburb")
		lat, latErr := strconv.ParseFloat(field(row, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(row, "longitude"), 64)
		if suburb == "" || latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		profiles = append(profiles, models.SuburbProfile{
			Suburb:      suburb,
			State:       field(row, "state"),
			Latitude:    lat,
			Longitude:   lon,
			MedianPrice: parseOptionalInt(field(row, "median_price")),
			MedianRent:  parseOptionalInt(field(row, "median_rent")),
		})
	}
	return profiles, skipped, nil
}

func parseOptionalInt(s string) *int64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return int64Ptr(int64(f))
}
