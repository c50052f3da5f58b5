package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

// DatabaseService opens the store database and runs schema statements
type DatabaseService interface {
	Connect(ctx context.Context, config DatabaseConfig) (*sql.DB, error)
	TestConnection(ctx context.Context, db *sql.DB) error
	Close(db *sql.DB) error
	GetVersion(ctx context.Context, db *sql.DB) (string, error)
	ExecuteSQL(ctx context.Context, db *sql.DB, statements []string) error
}

// Pool sizing for one store. Imports write entities sequentially, so a
// handful of connections covers the exporter reading while the CLI pings.
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
)

func errNilDB() error {
	return appErrors.NewValidationError("database connection is nil", nil)
}

type Service struct {
	connectionTimeout time.Duration
	logger            *logging.Logger
	retryHandler      *appErrors.RetryHandler
}

func NewService() *Service {
	return NewServiceWithLogger(logging.NewDefaultLogger())
}

func NewServiceWithLogger(logger *logging.Logger) *Service {
	return NewServiceWithOptions(logger, 30*time.Second, appErrors.DefaultRetryConfig())
}

// NewServiceWithOptions sets the ping timeout and the connect retry policy
func NewServiceWithOptions(logger *logging.Logger, timeout time.Duration, retry appErrors.RetryConfig) *Service {
	return &Service{
		connectionTimeout: timeout,
		logger:            logger,
		retryHandler:      appErrors.NewRetryHandler(retry),
	}
}

// Connect opens the pool and pings it, retrying while the server is
// unreachable
func (s *Service) Connect(ctx context.Context, config DatabaseConfig) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, appErrors.NewConfigurationError("invalid database configuration", err)
	}

	dsn := config.DSN()
	s.logger.WithField("dsn", logging.SanitizeDSN(dsn)).Debug("Connecting to store database")

	start := time.Now()
	var db *sql.DB
	err := s.retryHandler.Retry(ctx, func() error {
		opened, err := sql.Open("mysql", dsn)
		if err != nil {
			return appErrors.WrapError(err, "failed to open database connection")
		}
		opened.SetMaxOpenConns(maxOpenConns)
		opened.SetMaxIdleConns(maxIdleConns)
		opened.SetConnMaxLifetime(connMaxLifetime)

		if err := s.TestConnection(ctx, opened); err != nil {
			opened.Close()
			return err
		}
		db = opened
		return nil
	})
	s.logger.LogDatabaseConnection(config.Host, config.Database, err == nil, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// TestConnection pings within the connection timeout
func (s *Service) TestConnection(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errNilDB()
	}
	ctx, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return appErrors.WrapError(err, "store database did not answer")
	}
	return nil
}

// Close is a no-op for a nil pool
func (s *Service) Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Warn("Closing the store database failed")
		return appErrors.WrapError(err, "failed to close database connection")
	}
	return nil
}

// GetVersion is reported by the readiness check
func (s *Service) GetVersion(ctx context.Context, db *sql.DB) (string, error) {
	if db == nil {
		return "", errNilDB()
	}
	ctx, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	const query = "SELECT VERSION()"
	start := time.Now()
	var version string
	err := db.QueryRowContext(ctx, query).Scan(&version)
	s.logger.LogSQLExecution(query, time.Since(start), 1, err)
	if err != nil {
		return "", appErrors.WrapError(err, "failed to read server version")
	}
	return version, nil
}

// ExecuteSQL applies the table DDL in one transaction. Blank statements are
// skipped. A failing statement rolls everything back and its index is
// attached to the error.
func (s *Service) ExecuteSQL(ctx context.Context, db *sql.DB, statements []string) (err error) {
	if db == nil {
		return errNilDB()
	}
	if len(statements) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return appErrors.WrapError(err, "failed to begin schema transaction")
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WithField("error", rbErr.Error()).Error("Rolling back schema transaction failed")
		}
	}()

	applied := 0
	for i, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		start := time.Now()
		res, execErr := tx.ExecContext(ctx, stmt)
		var affected int64
		if res != nil {
			affected, _ = res.RowsAffected()
		}
		s.logger.LogSQLExecution(stmt, time.Since(start), affected, execErr)
		if execErr != nil {
			kind := appErrors.NewErrorClassifier().ClassifyError(execErr).Type
			return appErrors.NewAppError(kind, fmt.Sprintf("schema statement %d failed", i+1), execErr).
				WithContext("statement_index", i)
		}
		applied++
	}

	if err = tx.Commit(); err != nil {
		return appErrors.WrapError(err, "failed to commit schema transaction")
	}
	s.logger.WithField("statements", applied).Debug("Store schema is up to date")
	return nil
}
