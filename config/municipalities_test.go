package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple city name",
			input:    "Stockholm",
			expected: "stockholm",
		},
		{
			name:     "City name with diacritics",
			input:    "Malmö",
			expected: "malmo",
		},
		{
			name:     "Leading diacritic",
			input:    "Örebro",
			expected: "orebro",
		},
		{
			name:     "Ring above",
			input:    "Umeå",
			expected: "umea",
		},
		{
			name:     "Kommun suffix",
			input:    "Göteborgs Stad",
			expected: "goteborgs",
		},
		{
			name:     "Multiple spaces",
			input:    "  Upplands   Väsby  ",
			expected: "upplands vasby",
		},
		{
			name:     "Already normalized",
			input:    "lund",
			expected: "lund",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeCity(tt.input)
			assert.Equal(t, tt.expected, result,
				"NormalizeCity(%q) = %q, want %q", tt.input, result, tt.expected)
		})
	}
}

func TestMunicipalityCode(t *testing.T) {
	tests := []struct {
		name     string
		city     string
		expected string
	}{
		{name: "Capital", city: "Stockholm", expected: "0180"},
		{name: "Without diacritics", city: "Malmo", expected: "1280"},
		{name: "Upper case", city: "GÖTEBORG", expected: "1480"},
		{name: "English alias", city: "Gothenburg", expected: "1480"},
		{name: "Kommun suffix", city: "Uppsala kommun", expected: "0380"},
		{name: "Locality alias", city: "Visby", expected: "0980"},
		{name: "Unmapped city", city: "Ystad", expected: UnknownMunicipalityCode},
		{name: "Empty", city: "", expected: UnknownMunicipalityCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MunicipalityCode(tt.city))
		})
	}
}

func TestGetMunicipalityByCity(t *testing.T) {
	m := GetMunicipalityByCity("umea")
	require.NotNil(t, m)
	assert.Equal(t, "Umeå", m.Name)
	assert.Equal(t, "2480", m.Code)

	assert.Nil(t, GetMunicipalityByCity("Atlantis"))
}

func TestMunicipalityCodesAreUnique(t *testing.T) {
	seen := make(map[string]string)
	for _, m := range SupportedMunicipalities {
		assert.Len(t, m.Code, 4, "code for %s", m.Name)
		if other, ok := seen[m.Code]; ok {
			t.Errorf("code %s used by both %s and %s", m.Code, other, m.Name)
		}
		seen[m.Code] = m.Name
	}
	assert.Len(t, GetMunicipalityNames(), len(SupportedMunicipalities))
}
