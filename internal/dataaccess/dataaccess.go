// Package dataaccess provides the per-entity persistence the sync engine
// reads from and writes to.
package dataaccess

import (
	"context"
	"fmt"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
)

// Table reads and writes the records of one entity
type Table interface {
	// GetAll returns every stored record
	GetAll(ctx context.Context) ([]entity.Record, error)
	// InsertOrUpdate stores r keyed by the entity's primary key. It returns
	// false when the store rejected the record without an error.
	InsertOrUpdate(ctx context.Context, r entity.Record) (bool, error)
}

// Facade hands out tables by entity name (sheet, table or short name)
type Facade interface {
	Table(name string) (Table, error)
}

// UnknownTableError is returned for names outside the entity catalogue
type UnknownTableError struct {
	Name string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Name)
}

func lookup(name string) (*entity.Definition, error) {
	def, ok := entity.Lookup(name)
	if !ok {
		return nil, &UnknownTableError{Name: name}
	}
	return def, nil
}
