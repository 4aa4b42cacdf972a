package pgstore

import (
	"context"
	"database/sql"
)

// transact runs txFunc in a transaction, committing if it returns nil and
// rolling back if it returns an error or panics.
func transact(ctx context.Context, db *sql.DB, opts *sql.TxOptions, txFunc func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = txFunc(tx)
	return err
}
