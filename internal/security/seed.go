package security

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeedRecords is the bundled security history for the supported
// bridges, used by the in-memory store when no database is configured.
// The Postgres migrations carry the same data.
func SeedRecords() []*Record {
	return []*Record{
		{
			Bridge: "hop",
			Audits: []AuditEvent{
				{Firm: "Solidified", Date: date(2021, 6, 1), Result: "passed"},
				{Firm: "Monoceros", Date: date(2022, 2, 15), Result: "passed"},
			},
		},
		{
			Bridge: "across",
			Audits: []AuditEvent{
				{Firm: "OpenZeppelin", Date: date(2022, 1, 10), Result: "passed"},
				{Firm: "OpenZeppelin", Date: date(2023, 3, 20), Result: "passed"},
			},
		},
		{
			Bridge: "cbridge",
			Audits: []AuditEvent{
				{Firm: "PeckShield", Date: date(2021, 7, 5), Result: "passed"},
				{Firm: "SlowMist", Date: date(2021, 11, 30), Result: "passed"},
				{Firm: "CertiK", Date: date(2022, 5, 12), Result: "passed"},
			},
			Exploits: []ExploitEvent{
				// BGP hijack of the frontend, not the bridge contracts
				{Date: date(2022, 8, 17), LossAmount: decimal.NewFromInt(240_000), Description: "DNS/BGP hijack redirected frontend users to a malicious contract"},
			},
		},
		{
			Bridge: "stargate",
			Audits: []AuditEvent{
				{Firm: "Zellic", Date: date(2022, 3, 1), Result: "passed"},
				{Firm: "Quantstamp", Date: date(2022, 3, 15), Result: "passed"},
			},
		},
		{
			Bridge: "axelar",
			Audits: []AuditEvent{
				{Firm: "NCC Group", Date: date(2022, 1, 20), Result: "passed"},
				{Firm: "Oak Security", Date: date(2022, 9, 8), Result: "passed"},
			},
		},
		{
			Bridge: "wormhole",
			Audits: []AuditEvent{
				{Firm: "Neodyme", Date: date(2021, 8, 1), Result: "passed"},
				{Firm: "Kudelski Security", Date: date(2022, 6, 10), Result: "passed"},
			},
			Exploits: []ExploitEvent{
				{Date: date(2022, 2, 2), LossAmount: decimal.NewFromInt(325_000_000), Description: "Signature verification bypass minted unbacked wETH on Solana; funds restored by Jump"},
			},
		},
		{
			Bridge: "synapse",
			Audits: []AuditEvent{
				{Firm: "CertiK", Date: date(2021, 5, 20), Result: "passed"},
				{Firm: "Omniscia", Date: date(2022, 4, 14), Result: "passed"},
			},
		},
		{
			Bridge: "multichain",
			Audits: []AuditEvent{
				{Firm: "SlowMist", Date: date(2021, 5, 10), Result: "passed"},
			},
			Exploits: []ExploitEvent{
				{Date: date(2023, 7, 6), LossAmount: decimal.NewFromInt(126_000_000), Description: "Abnormal outflows drained bridge reserves across chains"},
				{Date: date(2022, 1, 18), LossAmount: decimal.NewFromInt(3_000_000), Description: "Token approval exploit against router contract"},
			},
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
