package coverage

import (
	"fmt"
	"strings"
	"time"

	"kabuten/internal/config"
)

// DateHeader is the line prefixed to system blocks so the model knows what
// "today" and "the past 24 hours" mean.
func DateHeader(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("Today is %s, %d %s %d (UTC).", now.Weekday(), now.Day(), now.Month(), now.Year())
}

// systemPrompt builds the analyst persona for one company.
func systemPrompt(company config.CompanyDef, sectorContext string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(DateHeader(now))
	sb.WriteString("\n\n")

	if company.Exchange != "" {
		fmt.Fprintf(&sb, "You are a coverage analyst for %s (%s on %s). ", company.Name, company.Ticker, company.Exchange)
	} else {
		fmt.Fprintf(&sb, "You are a coverage analyst for %s (%s). ", company.Name, company.Ticker)
	}
	fmt.Fprintf(&sb, "Sector context: %s\n\n", sectorContext)

	sb.WriteString(`Search for the latest news, filings, and developments for this company. Return a structured JSON finding with these fields:
- finding_type: 'none' | 'incremental' | 'material'
- headline: one-line summary
- detail: key details (max 150 words)
- signal: 'bullish' | 'neutral' | 'bearish' | 'watch' | 'risk'
- category: 'earnings' | 'product' | 'regulatory' | 'competitive' | 'macro'
- requires_escalation: true if material and warrants deep-dive
- assessment: investment assessment (max 100 words)
- sources: list of source descriptions

Be rigorous. Most days there is nothing material. Only flag material when there is a genuine change to the investment thesis.`)
	return sb.String()
}

// sweepPrompt is the user turn for one sweep.
func sweepPrompt(company config.CompanyDef) string {
	return fmt.Sprintf("Run today's sweep for %s (%s). Search for any news, filings, or developments from the past 24 hours. Respond with the JSON object only.",
		company.Name, company.Ticker)
}
