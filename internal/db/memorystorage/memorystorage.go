package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/ytsummarizer/internal/db/jsondb"
)

// MemoryStorage is the JSON store without a backing file; counters are
// lost on restart.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
