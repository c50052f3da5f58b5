package dataaccess

import (
	"context"
	"strings"
	"sync"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
)

// MemoryStore keeps every table in memory. It backs tests and dry runs.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*MemoryTable
}

// NewMemoryStore creates an empty store over the entity catalogue
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{tables: make(map[string]*MemoryTable)}
	for _, def := range entity.All() {
		s.tables[def.Table] = &MemoryTable{def: def, rows: make(map[string]entity.Record)}
	}
	return s
}

// Table implements Facade
func (s *MemoryStore) Table(name string) (Table, error) {
	return s.memoryTable(name)
}

func (s *MemoryStore) memoryTable(name string) (*MemoryTable, error) {
	def, err := lookup(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[def.Table], nil
}

// Seed inserts records directly, bypassing import logic
func (s *MemoryStore) Seed(name string, records ...entity.Record) error {
	t, err := s.memoryTable(name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if _, err := t.InsertOrUpdate(context.Background(), r); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of rows stored for name, or -1 for unknown names
func (s *MemoryStore) Count(name string) int {
	t, err := s.memoryTable(name)
	if err != nil {
		return -1
	}
	return t.Len()
}

// Get returns the row with the given primary key
func (s *MemoryStore) Get(name, id string) (entity.Record, bool) {
	t, err := s.memoryTable(name)
	if err != nil {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// MemoryTable is one in-memory entity table keyed by primary key
type MemoryTable struct {
	def   *entity.Definition
	mu    sync.RWMutex
	rows  map[string]entity.Record
	order []string
}

// GetAll returns copies of the stored rows in insertion order
func (t *MemoryTable) GetAll(ctx context.Context) ([]entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]entity.Record, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id].Clone())
	}
	return out, nil
}

// InsertOrUpdate upserts by primary key. A blank primary key is rejected.
func (t *MemoryTable) InsertOrUpdate(ctx context.Context, r entity.Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	id := strings.TrimSpace(r.String(t.def.PrimaryKey()))
	if id == "" {
		return false, nil
	}

	row := t.def.ZeroRecord()
	for k, v := range r {
		if c, ok := t.def.Column(k); ok {
			row[c.Name] = v
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
	return true, nil
}

// Len returns the number of stored rows
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
