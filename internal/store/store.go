// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
)

// ErrInvalidTransition is returned when a conditional status update
// matches no row, i.e. the entity was not in the required source
// state. Terminal captures can never be moved again.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}
