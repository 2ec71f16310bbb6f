package security

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Level buckets for a score.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Score is the derived security assessment for a bridge.
type Score struct {
	Bridge     string  `json:"bridge"`
	Score      float64 `json:"score"` // 0.0 - 1.0
	Level      string  `json:"level"`
	HasAudit   bool    `json:"has_audit"`
	HasExploit bool    `json:"has_exploit"`
}

// Scoring policy. The shape is fixed (time-decayed log-scaled exploit
// penalty, diminishing per-firm audit bonus, clamped result); the
// constants are tunable policy.
const (
	baseScore = 1.0

	// Exploit penalty: severity scales with log10 of the loss, saturating
	// around $1B. Penalties halve every two years, but losses at or above
	// severeLossUSD never decay below severeDecayFloor.
	exploitPenaltyMax = 0.6
	lossLogSaturation = 9.0 // log10($1B)
	decayHalfLife     = 2.0 // years
	severeLossUSD     = 100_000_000.0
	severeDecayFloor  = 0.25
	totalPenaltyCap   = 0.9

	// Audit bonus: the first passed audit from a firm is worth
	// auditBonusFirst; each further audit from the same firm is worth half
	// the previous one.
	auditBonusFirst = 0.05
	totalBonusCap   = 0.2
)

// Scorer computes security scores from records.
type Scorer struct{}

// NewScorer creates a scorer with the default policy.
func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreRecord derives the security score for a record as of the given
// evaluation date. The result does not depend on the order events were
// stored; identical inputs always yield the identical score.
func (s *Scorer) ScoreRecord(rec *Record, asOf time.Time) Score {
	if rec == nil {
		return Neutral("")
	}

	score := baseScore - s.exploitPenalty(rec.Exploits, asOf) + s.auditBonus(rec.Audits)
	score = math.Max(0, math.Min(1, score))

	return Score{
		Bridge:     rec.Bridge,
		Score:      score,
		Level:      levelFor(score),
		HasAudit:   rec.HasPassedAudit(),
		HasExploit: rec.HasExploit(),
	}
}

// Neutral is the default assessment when no record exists or the store is
// unreachable: medium trust, no claims either way.
func Neutral(bridge string) Score {
	return Score{
		Bridge: bridge,
		Score:  0.5,
		Level:  LevelMedium,
	}
}

func (s *Scorer) exploitPenalty(exploits []ExploitEvent, asOf time.Time) float64 {
	var total float64
	for _, e := range exploits {
		loss := e.LossUSD()
		severity := math.Min(1, math.Log10(loss+1)/lossLogSaturation)

		ageYears := asOf.Sub(e.Date).Hours() / (24 * 365.25)
		if ageYears < 0 {
			ageYears = 0
		}
		decay := math.Pow(0.5, ageYears/decayHalfLife)
		if loss >= severeLossUSD && decay < severeDecayFloor {
			decay = severeDecayFloor
		}

		total += exploitPenaltyMax * severity * decay
	}
	return math.Min(total, totalPenaltyCap)
}

func (s *Scorer) auditBonus(audits []AuditEvent) float64 {
	perFirm := make(map[string]int)
	for _, a := range audits {
		if a.Passed() {
			perFirm[strings.ToLower(strings.TrimSpace(a.Firm))]++
		}
	}

	// iterate firms in a fixed order so float summation is reproducible
	firms := make([]string, 0, len(perFirm))
	for f := range perFirm {
		firms = append(firms, f)
	}
	sort.Strings(firms)

	var total float64
	for _, f := range firms {
		bonus := auditBonusFirst
		for i := 0; i < perFirm[f]; i++ {
			total += bonus
			bonus /= 2
		}
	}
	return math.Min(total, totalBonusCap)
}

func levelFor(score float64) string {
	switch {
	case score >= 0.8:
		return LevelHigh
	case score >= 0.5:
		return LevelMedium
	default:
		return LevelLow
	}
}
