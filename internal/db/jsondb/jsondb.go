// Package jsondb keeps generation counters in memory and persists them to
// a JSON file on Close.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Counter is the stored quota state of one account.
type Counter struct {
	Email string
	// Count is the number of generations since the last reset.
	Count int
	// Total is the lifetime number of generations.
	Total int64
}

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type CacheStruct struct {
	Counters map[string]*Counter
}

// NewCache returns an empty cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Counters: map[string]*Counter{},
	}
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Counters": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	if cache.Counters == nil {
		cache.Counters = map[string]*Counter{}
	}

	return nil
}

func New(fileName string) (*JSONDB, error) {
	simpleJSONDB := JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(simpleJSONDB.fileName, &simpleJSONDB.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(simpleJSONDB.fileName, &simpleJSONDB.Cache)
		if err != nil {
			return nil, err
		}
	}

	return &simpleJSONDB, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) GetGenerationCount(ctx context.Context, userID string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	counter, found := db.Cache.Counters[userID]
	if !found {
		return 0, nil
	}

	return counter.Count, nil
}

func (db *JSONDB) IncrementGenerationCount(ctx context.Context, userID, email string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	counter := db.counterFor(userID, email)
	counter.Count++
	counter.Total++

	return counter.Count, nil
}

func (db *JSONDB) ResetGenerationCount(ctx context.Context, userID, email string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.counterFor(userID, email).Count = 0

	return nil
}

func (db *JSONDB) DeleteGenerationCount(ctx context.Context, userID string, transaction *sql.Tx) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.Cache.Counters, userID)

	return nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Counters)), nil
}

func (db *JSONDB) GetNumberOfGenerations(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var total int64
	for _, counter := range db.Cache.Counters {
		total += counter.Total
	}

	return total, nil
}

func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	err := writeToJSONFile(db.fileName, db.Cache)
	if err != nil {
		return err
	}

	return nil
}

// counterFor must be called with mu held for writing.
func (db *JSONDB) counterFor(userID, email string) *Counter {
	counter, found := db.Cache.Counters[userID]
	if !found {
		counter = &Counter{}
		db.Cache.Counters[userID] = counter
	}
	if email != "" {
		counter.Email = email
	}

	return counter
}
