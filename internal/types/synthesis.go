package types

import "math"

// Conviction bounds and the value used when a synthesis cannot be decoded.
const (
	MinConviction     = 0.0
	MaxConviction     = 10.0
	DefaultConviction = 5.0
)

// Synthesis is the sector-level reduction of one sweep's findings.
type Synthesis struct {
	SectorKey        string           `json:"sector_key"`
	Designation      string           `json:"designation"`
	Posture          Posture          `json:"posture"`
	Conviction       float64          `json:"conviction"`
	ThesisSummary    string           `json:"thesis_summary"`
	KeyDrivers       []string         `json:"key_drivers"`
	KeyRisks         []string         `json:"key_risks"`
	CompanySignals   []FindingSummary `json:"company_signals"`
	MaterialFindings []FindingSummary `json:"material_findings"`
}

// DegradedSynthesis is the neutral view built when the reduction step returns
// nothing usable. It still carries every finding.
func DegradedSynthesis(sectorKey, designation string, findings []Finding) Synthesis {
	return Synthesis{
		SectorKey:        sectorKey,
		Designation:      designation,
		Posture:          PostureNeutral,
		Conviction:       DefaultConviction,
		KeyDrivers:       []string{},
		KeyRisks:         []string{},
		CompanySignals:   Summaries(findings),
		MaterialFindings: MaterialSummaries(findings),
	}
}

// Summary returns the compact record appended to a thread.
func (s Synthesis) Summary() SynthesisSummary {
	return SynthesisSummary{
		Posture:       s.Posture,
		Conviction:    s.Conviction,
		ThesisSummary: s.ThesisSummary,
	}
}

// SynthesisSummary is the compact synthesis stored in a sweep thread entry.
type SynthesisSummary struct {
	Posture       Posture `json:"posture"`
	Conviction    float64 `json:"conviction"`
	ThesisSummary string  `json:"thesis_summary"`
}

// ClampConviction bounds c to [MinConviction, MaxConviction]. NaN maps to
// DefaultConviction.
func ClampConviction(c float64) float64 {
	if math.IsNaN(c) {
		return DefaultConviction
	}
	if c < MinConviction {
		return MinConviction
	}
	if c > MaxConviction {
		return MaxConviction
	}
	return c
}
