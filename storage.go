package gateway

import (
	"context"
	"database/sql"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// MemoryStore is a process-local StateStore. The default when no
// durable store is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ StateStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", enrich(ErrStateKeyNotFound, map[string]any{"key": key})
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// StateRecord is the bun model backing the durable store.
type StateRecord struct {
	bun.BaseModel `bun:"table:gateway_state,alias:gs"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// BunStore is a StateStore persisted through bun on SQLite. It gives
// the host durable browser-state semantics: referrer, theme
// preferences and tokens survive a restart.
type BunStore struct {
	db *bun.DB
}

var _ StateStore = (*BunStore)(nil)

// NewBunStore opens (or creates) the SQLite database at dsn and
// ensures the backing table exists. Use ":memory:" for tests.
func NewBunStore(ctx context.Context, dsn string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open state database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*StateRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create state table")
	}

	return &BunStore{db: db}, nil
}

func (s *BunStore) Get(ctx context.Context, key string) (string, error) {
	record := new(StateRecord)
	err := s.db.NewSelect().
		Model(record).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", enrich(ErrStateKeyNotFound, map[string]any{"key": key})
		}
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "state read failed")
	}
	return record.Value, nil
}

func (s *BunStore) Set(ctx context.Context, key, value string) error {
	record := &StateRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "state write failed")
	}
	return nil
}

func (s *BunStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*StateRecord)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "state delete failed")
	}
	return nil
}

// Close releases the underlying database.
func (s *BunStore) Close() error {
	return s.db.Close()
}
