package sector

import (
	"kabuten/internal/perception"
	"kabuten/internal/types"
)

// ParseSynthesis decodes model text into a Synthesis over findings. Fields
// default independently; ok is false when text held no JSON object, in which
// case the degraded synthesis is returned.
func ParseSynthesis(sectorKey, designation string, findings []types.Finding, text string) (types.Synthesis, bool) {
	s := types.DegradedSynthesis(sectorKey, designation, findings)

	obj, err := perception.DecodeObject(text)
	if err != nil {
		return s, false
	}

	if p, ok := types.ParsePosture(types.FieldString(obj, "posture", "")); ok {
		s.Posture = p
	}
	s.Conviction = types.ClampConviction(types.FieldFloat64(obj, "conviction", types.DefaultConviction))
	s.ThesisSummary = types.FieldString(obj, "thesis_summary", "")
	s.KeyDrivers = types.FieldStringList(obj, "key_drivers")
	s.KeyRisks = types.FieldStringList(obj, "key_risks")
	return s, true
}
