package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Entry is the persisted row model for BunStore.
type Entry struct {
	bun.BaseModel `bun:"table:kv_entries,alias:kve"`

	Key       string    `bun:"key,pk" json:"key"`
	Value     string    `bun:"value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// BunStore persists entries in a sqlite table, surviving process restarts.
// It is poll-only: it does not implement Notifier.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

var _ Store = (*BunStore)(nil)

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, now: time.Now}
}

// OpenSQLite opens a sqlite-backed bun DB for the given DSN. Use
// "file::memory:?cache=shared" for tests.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Init creates the backing table when missing.
func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Entry)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *BunStore) Get(ctx context.Context, key string) (string, error) {
	entry := &Entry{}

	err := s.db.NewSelect().
		Model(entry).
		Where("kve.key = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", err
	}

	return entry.Value, nil
}

func (s *BunStore) Set(ctx context.Context, key, value string) error {
	entry := &Entry{Key: key, Value: value, UpdatedAt: s.now()}

	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

func (s *BunStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*Entry)(nil)).
		Where("kve.key = ?", key).
		Exec(ctx)
	return err
}
