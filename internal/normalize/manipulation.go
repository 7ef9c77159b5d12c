package normalize

import (
	"strconv"

	"forseti-scan/internal/domain"
)

// Placeholder manipulation scores keyed by risk level. These mirror the
// dashboard's indicator scales (pump/dump 0-100, wash trading percent) and
// carry no statistical meaning.
var manipulationScores = map[domain.RiskLevel]struct {
	pumpDump    int
	washTrading int
}{
	domain.RiskHigh:   {pumpDump: 78, washTrading: 65},
	domain.RiskMedium: {pumpDump: 45, washTrading: 30},
	domain.RiskLow:    {pumpDump: 12, washTrading: 5},
}

// manipulationNarrative builds the placeholder blurb attached to every
// normalized token. The content is a deterministic function of the risk
// level, not of real trading data.
func manipulationNarrative(level domain.RiskLevel) *domain.Narrative {
	scores := manipulationScores[level]

	switch level {
	case domain.RiskHigh:
		return &domain.Narrative{
			Title: "High manipulation risk",
			Details: []string{
				"Pump and dump score " + strconv.Itoa(scores.pumpDump) + "/100",
				"Estimated wash trading share " + strconv.Itoa(scores.washTrading) + "%",
				"Related wallet clusters trading with each other",
			},
		}
	case domain.RiskLow:
		return &domain.Narrative{
			Title: "No significant manipulation detected",
			Details: []string{
				"Pump and dump score " + strconv.Itoa(scores.pumpDump) + "/100",
				"Estimated wash trading share " + strconv.Itoa(scores.washTrading) + "%",
			},
		}
	default:
		return &domain.Narrative{
			Title: "Moderate manipulation indicators",
			Details: []string{
				"Pump and dump score " + strconv.Itoa(scores.pumpDump) + "/100",
				"Estimated wash trading share " + strconv.Itoa(scores.washTrading) + "%",
				"Volume concentrated in few wallets",
			},
		}
	}
}
