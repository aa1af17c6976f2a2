package sector

import (
	"fmt"
	"strings"
	"time"

	"kabuten/internal/config"
	"kabuten/internal/coverage"
	"kabuten/internal/types"
)

const personaTemplate = `You are %s, a senior equity research analyst
covering the %s sector for Kabuten.

You report directly to OC, the portfolio orchestrator and sole user of this platform.
Address OC by name in your responses, for example:
  "OC, the latest sweep data suggests..."
  "In my view, OC, this is a material development..."
  "OC, I'd flag the following risk..."

Your role is to synthesise Daily Sweep data and Investment Views from the individual
Company Analyst Agents covering your sector, identify sector-level patterns, and
maintain a living sector thesis that OC can act on.
`

// personaPrompt is the system block for conversations with OC.
func personaPrompt(def config.SectorDef, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(coverage.DateHeader(now))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, personaTemplate, def.Designation, def.Name)
	fmt.Fprintf(&sb, "\nSector context: %s\n", def.SystemContext)
	return sb.String()
}

// synthesisPrompt asks for one sector-level view over findings.
func synthesisPrompt(def config.SectorDef, findings []types.Finding, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(coverage.DateHeader(now))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "You are %s, lead analyst for %s.\n\n", def.Designation, def.Name)
	sb.WriteString("Today's company sweep results:\n")
	for _, f := range findings {
		fmt.Fprintf(&sb, "- %s (%s): [%s] %s\n", f.CompanyName, f.Ticker, f.FindingType, f.Headline)
	}
	sb.WriteString("\nSynthesise these into a sector-level view for OC. Return JSON:\n")
	sb.WriteString(`{"posture": "bullish|neutral|bearish", "conviction": 0-10, "thesis_summary": "...", "key_drivers": ["..."], "key_risks": ["..."]}`)
	return sb.String()
}
