package security

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
)

// PostgresStore reads security records from PostgreSQL. The audit_reports
// and exploit_history tables are filled by the external ingestion process;
// migrations create them so a fresh deployment starts empty rather than
// erroring.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed security store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func normalizeBridge(bridge string) string {
	return strings.ToLower(strings.TrimSpace(bridge))
}

// Fetch loads a bridge's full audit and exploit history.
func (p *PostgresStore) Fetch(ctx context.Context, bridgeID string) (*Record, error) {
	rec := &Record{Bridge: bridgeID}

	rows, err := p.db.QueryContext(ctx, `
		SELECT audit_firm, audit_date, result
		FROM audit_reports WHERE LOWER(bridge) = $1
		ORDER BY audit_date, audit_firm
	`, normalizeBridge(bridgeID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var a AuditEvent
		if err := rows.Scan(&a.Firm, &a.Date, &a.Result); err != nil {
			return nil, err
		}
		rec.Audits = append(rec.Audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exRows, err := p.db.QueryContext(ctx, `
		SELECT incident_date, loss_amount, description
		FROM exploit_history WHERE LOWER(bridge) = $1
		ORDER BY incident_date
	`, normalizeBridge(bridgeID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = exRows.Close() }()

	for exRows.Next() {
		var e ExploitEvent
		var loss sql.NullString
		if err := exRows.Scan(&e.Date, &loss, &e.Description); err != nil {
			return nil, err
		}
		if loss.Valid {
			if d, err := decimal.NewFromString(loss.String); err == nil {
				e.LossAmount = d
			}
		}
		rec.Exploits = append(rec.Exploits, e)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	if len(rec.Audits) == 0 && len(rec.Exploits) == 0 {
		return nil, ErrNotFound
	}
	return rec, nil
}

// ListBridges returns every bridge with at least one audit or exploit row.
func (p *PostgresStore) ListBridges(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT bridge FROM audit_reports
		UNION
		SELECT bridge FROM exploit_history
		ORDER BY bridge
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var bridges []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		bridges = append(bridges, b)
	}
	return bridges, rows.Err()
}
