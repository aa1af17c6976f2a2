// Package types holds the value types shared by the coverage, sector and
// orchestrator layers: company findings, sector syntheses and the enums that
// classify them. Values are immutable once constructed; a later finding for the
// same ticker replaces an earlier one rather than mutating it.
package types

import "strings"

// Effort selects how much reasoning budget a sweep call may spend.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ParseEffort maps free text to an Effort. Unknown values behave as low.
func ParseEffort(s string) Effort {
	switch Effort(strings.ToLower(strings.TrimSpace(s))) {
	case EffortMedium:
		return EffortMedium
	case EffortHigh:
		return EffortHigh
	default:
		return EffortLow
	}
}

// FindingType classifies how much a day's developments matter.
type FindingType string

const (
	FindingNone        FindingType = "none"
	FindingIncremental FindingType = "incremental"
	FindingMaterial    FindingType = "material"
)

// Signal is the directional read of a finding.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalNeutral Signal = "neutral"
	SignalBearish Signal = "bearish"
	SignalWatch   Signal = "watch"
	SignalRisk    Signal = "risk"
)

// Category tags the kind of development behind a finding.
type Category string

const (
	CategoryEarnings    Category = "earnings"
	CategoryProduct     Category = "product"
	CategoryRegulatory  Category = "regulatory"
	CategoryCompetitive Category = "competitive"
	CategoryMacro       Category = "macro"
)

// Posture is the sector-level stance of a synthesis.
type Posture string

const (
	PostureBullish Posture = "bullish"
	PostureNeutral Posture = "neutral"
	PostureBearish Posture = "bearish"
)

// ParseFindingType normalizes s; ok is false for unknown values.
func ParseFindingType(s string) (FindingType, bool) {
	switch v := FindingType(normalize(s)); v {
	case FindingNone, FindingIncremental, FindingMaterial:
		return v, true
	}
	return FindingNone, false
}

// ParseSignal normalizes s; ok is false for unknown values.
func ParseSignal(s string) (Signal, bool) {
	switch v := Signal(normalize(s)); v {
	case SignalBullish, SignalNeutral, SignalBearish, SignalWatch, SignalRisk:
		return v, true
	}
	return SignalNeutral, false
}

// ParseCategory normalizes s; ok is false for unknown values.
func ParseCategory(s string) (Category, bool) {
	switch v := Category(normalize(s)); v {
	case CategoryEarnings, CategoryProduct, CategoryRegulatory, CategoryCompetitive, CategoryMacro:
		return v, true
	}
	return CategoryMacro, false
}

// ParsePosture normalizes s; ok is false for unknown values.
func ParsePosture(s string) (Posture, bool) {
	switch v := Posture(normalize(s)); v {
	case PostureBullish, PostureNeutral, PostureBearish:
		return v, true
	}
	return PostureNeutral, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TruncateWords keeps at most n whitespace-separated words of s.
func TruncateWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.TrimSpace(s)
	}
	return strings.Join(words[:n], " ")
}
