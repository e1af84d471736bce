//go:build cgo_sqlite

package main

import (
	_ "github.com/mattn/go-sqlite3"
)

// sqliteDriver is the cgo driver, selected with the cgo_sqlite build tag.
const sqliteDriver = "sqlite3"
