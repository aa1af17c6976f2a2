package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sectors.yaml
var defaultSectorsYAML []byte

// CompanyDef identifies one covered company.
type CompanyDef struct {
	Ticker   string `yaml:"ticker" json:"ticker"`
	Exchange string `yaml:"exchange" json:"exchange"`
	Name     string `yaml:"name" json:"name"`
}

// SectorDef is one sector's static definition: identity, roster and the
// domain context handed to every analyst in it.
type SectorDef struct {
	Key           string       `yaml:"key" json:"key"`
	Designation   string       `yaml:"designation" json:"designation"`
	Name          string       `yaml:"name" json:"name"`
	Colour        string       `yaml:"colour" json:"colour"`
	Companies     []CompanyDef `yaml:"companies" json:"companies"`
	SystemContext string       `yaml:"system_context" json:"system_context"`
}

// Clone returns a deep copy so callers cannot mutate the loaded roster.
func (s SectorDef) Clone() SectorDef {
	s.Companies = append([]CompanyDef(nil), s.Companies...)
	return s
}

type rosterFile struct {
	Sectors []SectorDef `yaml:"sectors"`
}

// LoadSectors loads the sector roster from path, or the embedded default
// roster when path is empty. Order follows the file.
func LoadSectors(path string) ([]SectorDef, error) {
	data := defaultSectorsYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sectors file: %w", err)
		}
		data = b
	}
	return ParseSectors(data)
}

// ParseSectors decodes and validates a roster document.
func ParseSectors(data []byte) ([]SectorDef, error) {
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse sectors: %w", err)
	}
	for i := range rf.Sectors {
		rf.Sectors[i].SystemContext = strings.TrimSpace(rf.Sectors[i].SystemContext)
	}
	if err := ValidateSectors(rf.Sectors); err != nil {
		return nil, err
	}
	return rf.Sectors, nil
}

// ValidateSectors checks keys are unique and non-empty, every sector has a
// designation and at least one company, and tickers are unique per sector.
func ValidateSectors(sectors []SectorDef) error {
	if len(sectors) == 0 {
		return fmt.Errorf("sector roster is empty")
	}
	seen := make(map[string]bool, len(sectors))
	for i, s := range sectors {
		if s.Key == "" {
			return fmt.Errorf("sector %d: missing key", i)
		}
		if seen[s.Key] {
			return fmt.Errorf("sector %s: duplicate key", s.Key)
		}
		seen[s.Key] = true
		if s.Designation == "" {
			return fmt.Errorf("sector %s: missing designation", s.Key)
		}
		if len(s.Companies) == 0 {
			return fmt.Errorf("sector %s: empty company roster", s.Key)
		}
		tickers := make(map[string]bool, len(s.Companies))
		for _, c := range s.Companies {
			if c.Ticker == "" {
				return fmt.Errorf("sector %s: company %q has no ticker", s.Key, c.Name)
			}
			if tickers[c.Ticker] {
				return fmt.Errorf("sector %s: duplicate ticker %s", s.Key, c.Ticker)
			}
			tickers[c.Ticker] = true
		}
	}
	return nil
}
