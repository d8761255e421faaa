package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner runs a function inside a database transaction.
type TxRunner struct{ db *sql.DB }

func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// InTx begins a transaction, runs fn and commits when fn returns nil. Any
// error from fn, or a panic, rolls the transaction back.
func (r *TxRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
