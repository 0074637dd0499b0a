// Package storage declares the contract every quota store backend
// (PostgreSQL, JSON file, memory) implements.
package storage

import (
	"context"
	"database/sql"
)

// Storage keeps per-account generation counters.
type Storage interface {
	// GetGenerationCount returns the generations since the last reset,
	// zero for unknown accounts.
	GetGenerationCount(ctx context.Context, userID string) (int, error)

	// IncrementGenerationCount adds one generation and returns the new count.
	IncrementGenerationCount(ctx context.Context, userID, email string) (int, error)

	// ResetGenerationCount sets the counter to zero, creating it if needed.
	ResetGenerationCount(ctx context.Context, userID, email string) error

	// DeleteGenerationCount removes every row kept for the account.
	DeleteGenerationCount(ctx context.Context, userID string, transaction *sql.Tx) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	// GetNumberOfGenerations returns the lifetime total over all accounts;
	// resets do not lower it.
	GetNumberOfGenerations(ctx context.Context) (int64, error)

	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
