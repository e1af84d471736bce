package main

import (
	"database/sql"
	"fmt"

	"github.com/CTAG07/wordchain/pkg/store"
)

// initDB opens the SQLite database at dataSource and makes sure the store
// schema exists.
func initDB(dataSource string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriver, dataSource)
	if err != nil {
		return nil, err
	}
	// Writes are serialized through a single connection.
	db.SetMaxOpenConns(1)

	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup store schema: %w", err)
	}
	return db, nil
}
