package types

// Word limits applied when a finding is decoded.
const (
	MaxDetailWords     = 150
	MaxAssessmentWords = 100
)

// DefaultHeadline is used when a sweep yields no headline.
const DefaultHeadline = "No significant developments"

// Finding is one company's sweep output.
type Finding struct {
	Ticker             string      `json:"ticker"`
	CompanyName        string      `json:"company_name"`
	FindingType        FindingType `json:"finding_type"`
	Headline           string      `json:"headline"`
	Detail             string      `json:"detail"`
	Signal             Signal      `json:"signal"`
	Category           Category    `json:"category"`
	RequiresEscalation bool        `json:"requires_escalation"`
	Assessment         string      `json:"assessment"`
	Sources            []string    `json:"sources"`
}

// DegradedFinding is the finding produced when the reasoning step fails or
// returns nothing usable.
func DegradedFinding(ticker, companyName string) Finding {
	return Finding{
		Ticker:      ticker,
		CompanyName: companyName,
		FindingType: FindingNone,
		Headline:    DefaultHeadline,
		Signal:      SignalNeutral,
		Category:    CategoryMacro,
		Sources:     []string{},
	}
}

// IsMaterial reports whether the finding changes the investment thesis.
func (f Finding) IsMaterial() bool {
	return f.FindingType == FindingMaterial
}

// Summary returns the compact form stored in threads and syntheses.
func (f Finding) Summary() FindingSummary {
	return FindingSummary{
		Ticker:      f.Ticker,
		CompanyName: f.CompanyName,
		FindingType: f.FindingType,
		Headline:    f.Headline,
		Detail:      f.Detail,
		Signal:      f.Signal,
		Category:    f.Category,
		Assessment:  f.Assessment,
	}
}

// FindingSummary is the compact, persisted form of a Finding. It drops the
// escalation flag and the sources.
type FindingSummary struct {
	Ticker      string      `json:"ticker"`
	CompanyName string      `json:"company_name"`
	FindingType FindingType `json:"finding_type"`
	Headline    string      `json:"headline"`
	Detail      string      `json:"detail"`
	Signal      Signal      `json:"signal"`
	Category    Category    `json:"category"`
	Assessment  string      `json:"assessment"`
}

// Summaries maps findings to their compact form, preserving order.
func Summaries(findings []Finding) []FindingSummary {
	out := make([]FindingSummary, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Summary())
	}
	return out
}

// MaterialSummaries returns the compact form of the material findings only.
func MaterialSummaries(findings []Finding) []FindingSummary {
	out := make([]FindingSummary, 0)
	for _, f := range findings {
		if f.IsMaterial() {
			out = append(out, f.Summary())
		}
	}
	return out
}
