package dataaccess

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/database"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

// MySQLStore persists entity tables in MySQL
type MySQLStore struct {
	db      *sql.DB
	service database.DatabaseService
	logger  *logging.Logger
}

// NewMySQLStore wraps an open connection
func NewMySQLStore(db *sql.DB, service database.DatabaseService, logger *logging.Logger) *MySQLStore {
	return &MySQLStore{db: db, service: service, logger: logger}
}

// OpenMySQLStore connects using config
func OpenMySQLStore(ctx context.Context, config database.DatabaseConfig, logger *logging.Logger) (*MySQLStore, error) {
	service := database.NewServiceWithLogger(logger)
	db, err := service.Connect(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewMySQLStore(db, service, logger), nil
}

// EnsureSchema creates any missing entity tables
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	defs := entity.ImportOrder()
	statements := make([]string, 0, len(defs))
	for _, def := range defs {
		statements = append(statements, CreateTableStatement(def))
	}
	return s.service.ExecuteSQL(ctx, s.db, statements)
}

// Version returns the server version
func (s *MySQLStore) Version(ctx context.Context) (string, error) {
	return s.service.GetVersion(ctx, s.db)
}

// Close releases the connection pool
func (s *MySQLStore) Close() error {
	return s.service.Close(s.db)
}

// Table implements Facade
func (s *MySQLStore) Table(name string) (Table, error) {
	def, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return &mysqlTable{
		db:         s.db,
		def:        def,
		logger:     s.logger,
		selectStmt: selectStatement(def),
		upsertStmt: upsertStatement(def),
	}, nil
}

type mysqlTable struct {
	db         *sql.DB
	def        *entity.Definition
	logger     *logging.Logger
	selectStmt string
	upsertStmt string
}

func (t *mysqlTable) GetAll(ctx context.Context) ([]entity.Record, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, t.selectStmt)
	if err != nil {
		t.logger.LogSQLExecution(t.selectStmt, time.Since(start), 0, err)
		return nil, fmt.Errorf("failed to read %s: %w", t.def.Table, err)
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		dest := scanTargets(t.def)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.def.Table, err)
		}
		out = append(out, recordFromScan(t.def, dest))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", t.def.Table, err)
	}

	t.logger.LogSQLExecution(t.selectStmt, time.Since(start), int64(len(out)), nil)
	return out, nil
}

func (t *mysqlTable) InsertOrUpdate(ctx context.Context, r entity.Record) (bool, error) {
	if strings.TrimSpace(r.String(t.def.PrimaryKey())) == "" {
		return false, nil
	}

	args := make([]any, len(t.def.Columns))
	for i, c := range t.def.Columns {
		args[i] = sqlValue(c, r[c.Name])
	}

	start := time.Now()
	result, err := t.db.ExecContext(ctx, t.upsertStmt, args...)
	var affected int64
	if result != nil {
		affected, _ = result.RowsAffected()
	}
	t.logger.LogSQLExecution(t.upsertStmt, time.Since(start), affected, err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTableStatement renders the DDL for one entity
func CreateTableStatement(def *entity.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", quoteIdent(def.Table))
	for i, c := range def.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(columnType(c, i == 0))
	}
	fmt.Fprintf(&b, ", PRIMARY KEY (%s)) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", quoteIdent(def.PrimaryKey()))
	return b.String()
}

func columnType(c entity.Column, primary bool) string {
	switch c.Kind {
	case entity.KindInt:
		return "BIGINT NOT NULL DEFAULT 0"
	case entity.KindFloat:
		return "DOUBLE NOT NULL DEFAULT 0"
	case entity.KindBool:
		return "TINYINT(1) NOT NULL DEFAULT 0"
	case entity.KindDate:
		return "DATETIME NULL"
	default:
		if primary {
			return "VARCHAR(191) NOT NULL"
		}
		return "TEXT NULL"
	}
}

func selectStatement(def *entity.Definition) string {
	cols := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		cols[i] = quoteIdent(c.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(def.Table))
}

func upsertStatement(def *entity.Definition) string {
	cols := make([]string, len(def.Columns))
	marks := make([]string, len(def.Columns))
	updates := make([]string, 0, len(def.Columns)-1)
	for i, c := range def.Columns {
		cols[i] = quoteIdent(c.Name)
		marks[i] = "?"
		if i > 0 {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", cols[i], cols[i]))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		quoteIdent(def.Table), strings.Join(cols, ", "), strings.Join(marks, ", "), strings.Join(updates, ", "))
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func scanTargets(def *entity.Definition) []any {
	dest := make([]any, len(def.Columns))
	for i, c := range def.Columns {
		switch c.Kind {
		case entity.KindInt:
			dest[i] = new(sql.NullInt64)
		case entity.KindFloat:
			dest[i] = new(sql.NullFloat64)
		case entity.KindBool:
			dest[i] = new(sql.NullBool)
		case entity.KindDate:
			dest[i] = new(sql.NullTime)
		default:
			dest[i] = new(sql.NullString)
		}
	}
	return dest
}

func recordFromScan(def *entity.Definition, dest []any) entity.Record {
	r := make(entity.Record, len(def.Columns))
	for i, c := range def.Columns {
		switch v := dest[i].(type) {
		case *sql.NullInt64:
			r[c.Name] = v.Int64
		case *sql.NullFloat64:
			r[c.Name] = v.Float64
		case *sql.NullBool:
			r[c.Name] = v.Bool
		case *sql.NullTime:
			r[c.Name] = v.Time
		case *sql.NullString:
			r[c.Name] = v.String
		}
	}
	return r
}

func sqlValue(c entity.Column, v any) any {
	if v == nil {
		v = entity.ZeroValue(c.Kind)
	}
	if c.Kind == entity.KindDate {
		t, ok := v.(time.Time)
		if !ok || t.IsZero() {
			return nil
		}
		return t
	}
	if c.Kind == entity.KindString {
		if _, ok := v.(string); !ok {
			return fmt.Sprint(v)
		}
	}
	return v
}
