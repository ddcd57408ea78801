package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadReferenceData_Bundled(t *testing.T) {
	ref, err := LoadReferenceData(ReferenceOptions{})
	require.NoError(t, err)

	assert.Contains(t, ref.Suburbs(), "Glen Iris")
	assert.Contains(t, ref.Suburbs(), "South Yarra")

	p, ok := FindProfile("Glen Iris", ref.Profiles())
	require.True(t, ok)
	assert.Equal(t, "VIC", p.State)
	require.NotNil(t, p.MedianPrice)
}

func TestLoadReferenceData_ExternalFilesFirstMatchWins(t *testing.T) {
	suburbs := writeTemp(t, "suburbs.txt", "Glen Iris\n\nNewtown\nnewtown\n")
	profiles := writeTemp(t, "profiles.csv", `suburb,state,latitude,longitude,median_price,median_rent
Glen Iris,NSW,-33.0,151.0,1,1
Newtown,NSW,-33.8980,151.1790,1650000.0,750
Broken,NSW,not-a-number,151.0,,
,NSW,-33.0,151.0,,
Short Row,NSW
`)

	ref, err := LoadReferenceData(ReferenceOptions{SuburbsPath: suburbs, ProfilesPath: profiles})
	require.NoError(t, err)

	glen, ok := FindProfile("Glen Iris", ref.Profiles())
	require.True(t, ok)
	assert.Equal(t, "VIC", glen.State, "bundled profile must win over the later duplicate")

	newtown, ok := FindProfile("newtown", ref.Profiles())
	require.True(t, ok)
	require.NotNil(t, newtown.MedianPrice)
	assert.Equal(t, int64(1650000), *newtown.MedianPrice)

	_, ok = FindProfile("Broken", ref.Profiles())
	assert.False(t, ok)
	_, ok = FindProfile("Short Row", ref.Profiles())
	assert.False(t, ok)

	count := 0
	for _, s := range ref.Suburbs() {
		if s == "Newtown" || s == "newtown" {
			count++
		}
	}
	assert.Equal(t, 1, count, "gazetteer names are unique ignoring case")
}

func TestLoadReferenceData_MissingExternalFile(t *testing.T) {
	ref, err := LoadReferenceData(ReferenceOptions{
		SuburbsPath:  filepath.Join(t.TempDir(), "missing.txt"),
		ProfilesPath: filepath.Join(t.TempDir(), "missing.csv"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ref.Profiles())
}

func TestNewReferenceData_ProfileNamesJoinGazetteer(t *testing.T) {
	ref := NewReferenceData([]string{"Richmond"}, testProfiles())
	assert.Equal(t, "Richmond", ref.Suburbs()[0])
	assert.Contains(t, ref.Suburbs(), "Geelong")
}
