// Package security derives a bounded [0,1] security score per bridge from
// persisted audit and exploit history.
//
// The history records are owned by an external ingestion process; this
// package only reads them. Scores are recomputed on demand and are
// deterministic for a fixed record set and evaluation date.
package security

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AuditEvent is one audit engagement on record for a bridge.
type AuditEvent struct {
	Firm   string    `json:"audit_firm"`
	Date   time.Time `json:"audit_date"`
	Result string    `json:"result"`
}

// Passed reports whether the audit result indicates a passing grade.
func (a AuditEvent) Passed() bool {
	return strings.Contains(strings.ToLower(a.Result), "passed")
}

// ExploitEvent is one incident on record for a bridge.
type ExploitEvent struct {
	Date        time.Time       `json:"incident_date"`
	LossAmount  decimal.Decimal `json:"loss_amount"`
	Description string          `json:"description"`
}

// LossUSD returns the loss amount as a float for scoring.
func (e ExploitEvent) LossUSD() float64 {
	f, _ := e.LossAmount.Float64()
	if f < 0 {
		return 0
	}
	return f
}

// Record is the full persisted security history for one bridge. Event
// order carries no meaning.
type Record struct {
	Bridge   string         `json:"bridge"`
	Audits   []AuditEvent   `json:"audits"`
	Exploits []ExploitEvent `json:"exploits"`
}

// HasPassedAudit reports whether at least one passed audit exists.
func (r *Record) HasPassedAudit() bool {
	for _, a := range r.Audits {
		if a.Passed() {
			return true
		}
	}
	return false
}

// HasExploit reports whether any exploit is on record, regardless of age.
func (r *Record) HasExploit() bool {
	return len(r.Exploits) > 0
}

// Report bundles a bridge's derived score with the events behind it.
type Report struct {
	Score    Score          `json:"score"`
	Audits   []AuditEvent   `json:"audits"`
	Exploits []ExploitEvent `json:"exploits"`
}
