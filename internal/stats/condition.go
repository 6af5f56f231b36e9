// Package stats classifies hourly ceiling/visibility pairs into flight
// rule categories and aggregates them into per-hour monthly distributions.
package stats

// FlightCondition is an ordinal flight rule category; larger values mean
// better flying conditions.
type FlightCondition int

const (
	LIFR FlightCondition = iota + 1
	IFR
	MVFR
	VFR
)

func (c FlightCondition) String() string {
	switch c {
	case LIFR:
		return "LIFR"
	case IFR:
		return "IFR"
	case MVFR:
		return "MVFR"
	case VFR:
		return "VFR"
	default:
		return "UNKNOWN"
	}
}

// classifyRule is one row of the ordered classification table. The first
// rule whose minimums are both met wins; boundary values therefore land in
// the better category.
type classifyRule struct {
	condition     FlightCondition
	minCeiling    float64 // feet
	minVisibility float64 // statute miles
}

var classifyRules = []classifyRule{
	{VFR, 3000, 5},
	{MVFR, 1000, 3},
	{IFR, 500, 1},
}

// Classify maps a (ceiling, visibility) pair to its flight rule category.
// Ceiling is in feet, visibility in statute miles.
func Classify(ceiling, visibility float64) FlightCondition {
	for _, r := range classifyRules {
		if ceiling >= r.minCeiling && visibility >= r.minVisibility {
			return r.condition
		}
	}
	return LIFR
}
