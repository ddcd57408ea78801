package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"property-hunter/models"
)

// SearchFile is the YAML document accepted by "searches import".
type SearchFile struct {
	Searches []SearchEntry `yaml:"searches"`
}

// SearchEntry describes one saved search. Query is optional free text;
// explicit Criteria fields override whatever the query parses to.
type SearchEntry struct {
	Name     string                `yaml:"name"`
	Email    string                `yaml:"email"`
	Schedule string                `yaml:"schedule"`
	Query    string                `yaml:"query"`
	Criteria models.SearchCriteria `yaml:"criteria"`
}

// LoadSearchFile reads a saved-search YAML file, substituting ${VAR} and
// ${VAR:-default} from the environment.
func LoadSearchFile(path string) (SearchFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return SearchFile{}, fmt.Errorf("failed to read search file %s: %w", path, err)
	}
	return ParseSearchFile(data)
}

// ParseSearchFile parses saved-search YAML from memory.
func ParseSearchFile(data []byte) (SearchFile, error) {
	data = expandEnvVars(data)

	var f SearchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return SearchFile{}, fmt.Errorf("failed to parse search file: %w", err)
	}

	f.ApplyDefaults()
	if err := f.Validate(); err != nil {
		return SearchFile{}, fmt.Errorf("invalid search file: %w", err)
	}
	return f, nil
}

// ApplyDefaults fills empty fields with default values.
func (f *SearchFile) ApplyDefaults() {
	for i := range f.Searches {
		if f.Searches[i].Schedule == "" {
			f.Searches[i].Schedule = "daily"
		}
	}
}

// Validate checks every entry has a name, a recipient and something to search for.
func (f *SearchFile) Validate() error {
	if len(f.Searches) == 0 {
		return fmt.Errorf("searches is empty")
	}
	for i, s := range f.Searches {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("searches[%d].name is required", i)
		}
		if !strings.Contains(s.Email, "@") {
			return fmt.Errorf("searches[%d].email must be an e-mail address, got %q", i, s.Email)
		}
		if strings.TrimSpace(s.Query) == "" && s.Criteria == (models.SearchCriteria{}) {
			return fmt.Errorf("searches[%d] needs a query or criteria", i)
		}
	}
	return nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
