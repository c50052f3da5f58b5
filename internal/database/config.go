package database

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DatabaseConfig holds the connection parameters of the local MySQL store
type DatabaseConfig struct {
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Database string        `mapstructure:"database" yaml:"database"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Validate checks if the database configuration has all required parameters
func (dc *DatabaseConfig) Validate() error {
	var errs []error

	if dc.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}

	if dc.Port <= 0 || dc.Port > 65535 {
		errs = append(errs, errors.New("port must be between 1 and 65535"))
	}

	if dc.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}

	if dc.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("database configuration validation failed: %v", errors.Join(errs...))
	}

	return nil
}

// SetDefaults fills in the port and timeout
func (dc *DatabaseConfig) SetDefaults() {
	if dc.Port == 0 {
		dc.Port = 3306
	}
	if dc.Timeout == 0 {
		dc.Timeout = 30 * time.Second
	}
}

// IsConfigured reports whether a MySQL store was configured at all
func (dc *DatabaseConfig) IsConfigured() bool {
	return dc.Host != "" && dc.Database != ""
}

// DSN returns the Data Source Name for MySQL connection
func (dc *DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = dc.Username
	cfg.Passwd = dc.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
	cfg.DBName = dc.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = dc.Timeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}
