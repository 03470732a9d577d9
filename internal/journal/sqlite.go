package journal

import (
	"database/sql"
	"fmt"

	"vixfix-trading-bot/internal/types"

	_ "github.com/mattn/go-sqlite3"
)

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	seq INTEGER PRIMARY KEY,
	timestamp TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry REAL NOT NULL,
	sl REAL NOT NULL,
	tp REAL NOT NULL,
	lot REAL NOT NULL,
	tag TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_tag ON trades(tag) WHERE tag IS NOT NULL;
`

// ExportSQLite writes the journal to a SQLite database for offline queries.
// Rows are keyed by their position in the journal, so exporting twice is
// idempotent.
func ExportSQLite(path string, recs []types.TradeRecord) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trades
		(seq, timestamp, direction, entry, sl, tp, lot, tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, r := range recs {
		var tag any
		if r.Tag != "" {
			tag = r.Tag
		}
		if _, err := stmt.Exec(i+1, r.Timestamp, string(r.Direction), r.Entry, r.SL, r.TP, r.Lot, tag); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert trade %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
