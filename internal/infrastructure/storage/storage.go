// Package storage implements C11's optional snapshot persistence: saving
// and loading an exported interpretation document by run id. Grounded on
// the teacher's storage layer (memory.go/bun_store.go): an in-memory
// store for tests and a Postgres-backed store for production, behind one
// interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/smilemakc/reason/internal/interpretation"
)

// SnapshotStore persists and retrieves exported interpretation documents
// by an opaque run id.
type SnapshotStore interface {
	Save(ctx context.Context, id string, doc *interpretation.Document) error
	Load(ctx context.Context, id string) (*interpretation.Document, error)
}

// MemoryStore is an in-process SnapshotStore, the default for tests and
// for CLI runs that never configure a database.
type MemoryStore struct {
	mu    sync.RWMutex
	saved map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{saved: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, id string, doc *interpretation.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling snapshot %s: %w", id, err)
	}
	s.mu.Lock()
	s.saved[id] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*interpretation.Document, error) {
	s.mu.RLock()
	raw, ok := s.saved[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no snapshot stored for id %s", id)
	}
	var doc interpretation.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot %s: %w", id, err)
	}
	return &doc, nil
}

// snapshotRow is the Postgres-backed row for one stored interpretation.
type snapshotRow struct {
	bun.BaseModel `bun:"table:reason_snapshots"`

	ID        string    `bun:"id,pk"`
	Document  []byte    `bun:"document,type:jsonb"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// BunStore persists snapshots to Postgres via uptrace/bun.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a Postgres connection from dsn and wraps it in a
// bun.DB configured with the Postgres dialect.
func NewBunStore(dsn string) (*BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}, nil
}

// EnsureSchema creates the snapshots table if it does not already exist.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*snapshotRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *BunStore) Save(ctx context.Context, id string, doc *interpretation.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling snapshot %s: %w", id, err)
	}
	row := &snapshotRow{ID: id, Document: raw, CreatedAt: time.Now()}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("document = EXCLUDED.document").
		Exec(ctx)
	return err
}

func (s *BunStore) Load(ctx context.Context, id string) (*interpretation.Document, error) {
	row := new(snapshotRow)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	var doc interpretation.Document
	if err := json.Unmarshal(row.Document, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot %s: %w", id, err)
	}
	return &doc, nil
}

// Close closes the underlying connection pool.
func (s *BunStore) Close() error {
	return s.db.Close()
}
