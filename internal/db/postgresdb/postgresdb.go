// Package postgresdb provides a PostgreSQL-based implementation of the quota
// store. It runs goose migrations on start and keeps one row per account.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresDB is a PostgreSQL-backed quota store.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
// Optionally accepts initialization options, such as WithDBPreReset.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w",
				err,
			)
	}

	return result, nil
}

// GetGenerationCount returns the generations of userID since its last reset.
// Unknown accounts have a zero counter.
func (db *PostgresDB) GetGenerationCount(ctx context.Context, userID string) (int, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT generation_count FROM generation_quotas WHERE user_id = $1`,
		userID,
	)
	var count int
	err := row.Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return count, nil
}

// IncrementGenerationCount atomically adds one generation to userID's row,
// creating it on first use, and returns the new counter.
func (db *PostgresDB) IncrementGenerationCount(ctx context.Context, userID, email string) (int, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO generation_quotas (user_id, email, generation_count, total_generations)
				VALUES ($1, $2, 1, 1)
				ON CONFLICT (user_id) DO UPDATE
				SET
					email = COALESCE(NULLIF(EXCLUDED.email, ''), generation_quotas.email),
					generation_count = generation_quotas.generation_count + 1,
					total_generations = generation_quotas.total_generations + 1,
					updated_at = now()
				RETURNING generation_count
		`,
		userID,
		email,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// ResetGenerationCount sets userID's counter to zero, keeping the lifetime total.
func (db *PostgresDB) ResetGenerationCount(ctx context.Context, userID, email string) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO generation_quotas (user_id, email, generation_count, total_generations)
				VALUES ($1, $2, 0, 0)
				ON CONFLICT (user_id) DO UPDATE
				SET
					email = COALESCE(NULLIF(EXCLUDED.email, ''), generation_quotas.email),
					generation_count = 0,
					updated_at = now()
		`,
		userID,
		email,
	)

	return err
}

// DeleteGenerationCount removes userID's row, inside transaction when given.
func (db *PostgresDB) DeleteGenerationCount(ctx context.Context, userID string, transaction *sql.Tx) error {
	var database executor
	if transaction == nil {
		database = db.database
	} else {
		database = transaction
	}

	_, err := database.ExecContext(
		ctx,
		`DELETE FROM generation_quotas WHERE user_id = $1`,
		userID,
	)

	return err
}

// GetNumberOfUsers returns how many accounts have a quota row.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.scalar(ctx, db.database, `SELECT COUNT(*) FROM generation_quotas`)
}

// GetNumberOfGenerations returns the lifetime total of generations.
func (db *PostgresDB) GetNumberOfGenerations(ctx context.Context) (int64, error) {
	return db.scalar(ctx, db.database, `SELECT COALESCE(SUM(total_generations), 0) FROM generation_quotas`)
}

// CommitTransaction commits the given SQL transaction.
// Returns an error if the commit operation fails.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
// Rolling back an already finished transaction is not an error.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	err := transaction.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) scalar(ctx context.Context, database queryer, query string) (int64, error) {
	var value int64
	if err := database.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return 0, err
	}

	return value, nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
