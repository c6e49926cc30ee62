package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Errors surfaced by the order store. Handlers translate these into HTTP
// status codes; everything else is an internal error.
var (
	ErrNotFound       = errors.New("order not found")
	ErrDuplicateOrder = errors.New("Order already exists")
)

// ValidationError reports rejected input on a store operation
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// New opens a Postgres connection pool for the orderbook
func New(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(2000)
	db.SetMaxIdleConns(50)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
