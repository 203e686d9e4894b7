package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// ParseLogLevel maps a config value such as "warn" to a LogLevel. Unknown values are silent.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	}
	return LogLevelSilent
}

func (l LogLevel) gorm() logger.LogLevel {
	switch l {
	case LogLevelError:
		return logger.Error
	case LogLevelWarn:
		return logger.Warn
	case LogLevelInfo:
		return logger.Info
	}
	return logger.Silent
}

// DatabaseManager owns one MySQL pool shared by every crew company. Each
// company has its own schema; a request is bound to a single connection
// switched to that schema.
type DatabaseManager struct {
	SqlDB         *sql.DB
	LogLevel      LogLevel
	DefaultSchema string
}

// New opens the pool. dsn should not carry a schema unless it is also the default.
func New(dsn string, maxConnection int) (*DatabaseManager, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	return &DatabaseManager{SqlDB: sqlDB, DefaultSchema: SchemaFromDSN(dsn)}, nil
}

// SchemaFromDSN returns the database name in a go-sql-driver DSN, e.g.
// "user:pw@tcp(host:3306)/crewtrack?parseTime=true" -> "crewtrack".
func SchemaFromDSN(dsn string) string {
	withoutQuery := strings.SplitN(dsn, "?", 2)[0]
	segments := strings.Split(withoutQuery, "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-1]
}

// SchemaForHost maps a request host to its company schema:
// "acme.crewtrack.app" -> "acme". localhost uses the default schema.
func (dm *DatabaseManager) SchemaForHost(host string) string {
	if host == "localhost" || host == "127.0.0.1" || host == "" {
		return dm.DefaultSchema
	}
	return strings.Split(host, ".")[0]
}

// GetDB returns a *gorm.DB pinned to one pooled connection using schema.
// The caller closes the returned connection.
func (dm *DatabaseManager) GetDB(ctx context.Context, schema string) (*gorm.DB, *sql.Conn, error) {
	if schema == "" {
		return nil, nil, fmt.Errorf("no schema to use")
	}

	conn, err := dm.SqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conn: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "USE `"+strings.ReplaceAll(schema, "`", "")+"`"); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to use schema %s: %w", schema, err)
	}

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: conn}), &gorm.Config{
		Logger:         logger.Default.LogMode(dm.LogLevel.gorm()),
		TranslateError: true,
	})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return db, conn, nil
}

func (dm *DatabaseManager) Close() error {
	return dm.SqlDB.Close()
}

func (dm *DatabaseManager) Exec(ctx context.Context, schema string, fn func(db *gorm.DB) error) error {
	db, conn, err := dm.GetDB(ctx, schema)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(db)
}

// GetAllDatabases lists the company schemas on the server.
func (dm *DatabaseManager) GetAllDatabases(ctx context.Context) ([]string, error) {
	rows, err := dm.SqlDB.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("failed to query databases: %w", err)
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var db string
		if err := rows.Scan(&db); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}

		switch db {
		case "information_schema", "mysql", "performance_schema", "sys":
			continue
		}
		databases = append(databases, db)
	}

	return databases, rows.Err()
}
