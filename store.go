package bloodliner

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	// database drivers
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// StateKey is the key the season blob is stored under.
const StateKey = "bloodliner/v4"

// ErrNotFound is returned by a Store when no value exists for a key.
var ErrNotFound = errors.New("not found")

// Store persists opaque values by key. Values are always written whole.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, val []byte) error
	Close() error
}

type MemoryStore struct {
	mu   sync.Mutex
	vals map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.vals[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, val...), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = append([]byte{}, val...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

type SQLStore struct {
	db     *sql.DB
	driver string
}

var schema = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS kv (
  key TEXT NOT NULL PRIMARY KEY,
  value BLOB NOT NULL,
  updated_ts BIGINT NOT NULL
)`,
	"postgres": `CREATE TABLE IF NOT EXISTS kv (
  key TEXT NOT NULL PRIMARY KEY,
  value BYTEA NOT NULL,
  updated_ts BIGINT NOT NULL
)`,
}

var upsert = map[string]string{
	"sqlite": `INSERT INTO kv (key, value, updated_ts) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts`,
	"postgres": `INSERT INTO kv (key, value, updated_ts) VALUES ($1, $2, $3)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts`,
}

var query = map[string]string{
	"sqlite":   `SELECT value FROM kv WHERE key = ?`,
	"postgres": `SELECT value FROM kv WHERE key = $1`,
}

// OpenStore opens a Store for the named driver: "memory", "sqlite" or "postgres".
func OpenStore(ctx context.Context, driver, dsn string) (Store, error) {
	if driver == "memory" {
		return NewMemoryStore(), nil
	}
	if _, ok := schema[driver]; !ok {
		return nil, errors.Errorf("unsupported driver %q", driver)
	}
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	src := dsn
	if driver == "sqlite" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		src = dsn + sep + "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open(driver, src)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping db")
	}
	if _, err := db.ExecContext(ctx, schema[driver]); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate kv table")
	}
	return &SQLStore{db: db, driver: driver}, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.QueryRowContext(ctx, query[s.driver], key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", key)
	}
	return val, nil
}

func (s *SQLStore) Save(ctx context.Context, key string, val []byte) error {
	if _, err := s.db.ExecContext(ctx, upsert[s.driver], key, val, time.Now().Unix()); err != nil {
		return errors.Wrapf(err, "failed to save %s", key)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
