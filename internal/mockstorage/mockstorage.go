// Package mockstorage provides a testify-based mock implementation
// of the quota store. It is used for unit testing the quota gate and the
// service layer by simulating storage behavior.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the store.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// GetGenerationCount mocks reading a counter.
func (m *StorageMock) GetGenerationCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// IncrementGenerationCount mocks recording a generation.
func (m *StorageMock) IncrementGenerationCount(ctx context.Context, userID, email string) (int, error) {
	args := m.Called(ctx, userID, email)
	return args.Int(0), args.Error(1)
}

// ResetGenerationCount mocks the login reset.
func (m *StorageMock) ResetGenerationCount(ctx context.Context, userID, email string) error {
	args := m.Called(ctx, userID, email)
	return args.Error(0)
}

// DeleteGenerationCount mocks dropping an account's counter.
func (m *StorageMock) DeleteGenerationCount(ctx context.Context, userID string, tx *sql.Tx) error {
	args := m.Called(ctx, userID, tx)
	return args.Error(0)
}

// GetNumberOfUsers mocks the user statistic.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfGenerations mocks the generation statistic.
func (m *StorageMock) GetNumberOfGenerations(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
