package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSectors_Embedded(t *testing.T) {
	sectors, err := LoadSectors("")
	require.NoError(t, err)
	require.Len(t, sectors, 17)

	first := sectors[0]
	assert.Equal(t, "au_enterprise_software", first.Key)
	assert.Equal(t, "APEX", first.Designation)
	assert.Equal(t, "#6366f1", first.Colour)
	assert.Equal(t, "WTC", first.Companies[0].Ticker)
	assert.Equal(t, "ASX", first.Companies[0].Exchange)
	assert.Contains(t, first.SystemContext, "ASX-listed SaaS")
	assert.NotContains(t, first.SystemContext, "\n")

	total := 0
	for _, s := range sectors {
		total += len(s.Companies)
	}
	assert.Equal(t, 94, total)
}

func TestLoadSectors_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.yaml")
	doc := `sectors:
  - key: test
    designation: TEST
    name: Test Sector
    companies:
      - {ticker: "X", exchange: NYSE, name: X Corp}
      - {ticker: "Y", exchange: NYSE, name: Y Corp}
    system_context: test context
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	sectors, err := LoadSectors(path)
	require.NoError(t, err)
	require.Len(t, sectors, 1)
	assert.Equal(t, "test context", sectors[0].SystemContext)
	assert.Len(t, sectors[0].Companies, 2)
}

func TestLoadSectors_MissingFile(t *testing.T) {
	_, err := LoadSectors(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateSectors(t *testing.T) {
	company := []CompanyDef{{Ticker: "X", Name: "X"}}

	tests := []struct {
		name    string
		sectors []SectorDef
		wantErr bool
	}{
		{"empty roster", nil, true},
		{"missing key", []SectorDef{{Designation: "A", Companies: company}}, true},
		{"duplicate key", []SectorDef{
			{Key: "a", Designation: "A", Companies: company},
			{Key: "a", Designation: "B", Companies: company},
		}, true},
		{"missing designation", []SectorDef{{Key: "a", Companies: company}}, true},
		{"no companies", []SectorDef{{Key: "a", Designation: "A"}}, true},
		{"duplicate ticker", []SectorDef{{Key: "a", Designation: "A", Companies: []CompanyDef{{Ticker: "X"}, {Ticker: "X"}}}}, true},
		{"blank ticker", []SectorDef{{Key: "a", Designation: "A", Companies: []CompanyDef{{Name: "nameless"}}}}, true},
		{"valid", []SectorDef{{Key: "a", Designation: "A", Companies: company}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSectors(tt.sectors)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSectorDefClone(t *testing.T) {
	orig := SectorDef{Key: "a", Companies: []CompanyDef{{Ticker: "X"}}}
	c := orig.Clone()
	c.Companies[0].Ticker = "Z"
	assert.Equal(t, "X", orig.Companies[0].Ticker)
}
