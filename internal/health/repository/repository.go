// Package repository provides data access for the user health engine:
// per-user automation state records and the append-only audit log.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repository provides pgx-backed access to user states and audit events.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new Repository using the provided connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
