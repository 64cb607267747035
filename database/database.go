package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yatube/domain"
	"yatube/log"
)

// Supported database dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config describes how to reach the database.
type Config struct {
	Dialect  string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// Path is the database file of the sqlite dialect. ":memory:" opens a
	// private in-memory database.
	Path string
}

// ConnectionInfo returns the dialect specific connection string.
func (c Config) ConnectionInfo() string {
	if c.Dialect == DialectSQLite {
		return c.Path + "?_foreign_keys=on"
	}
	if c.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", c.Host, c.Port, c.User, c.Password, c.Name)
}

// DB provides the database connection.
type DB struct {
	// Object-relational mapping.
	Gorm *gorm.DB
	// Connection settings containing dialect, database name, user, port etc.
	Config Config
}

// NewDB returns a new instance of DB.
func NewDB(cfg Config) *DB {
	return &DB{
		Config: cfg,
	}
}

// Open opens a new database connection. It also configures logging
// based on whether we're in development or in production.
func Open(db *DB, isProd bool) (err error) {
	var dialector gorm.Dialector
	switch db.Config.Dialect {
	case DialectPostgres, "":
		dialector = postgres.Open(db.Config.ConnectionInfo())
	case DialectSQLite:
		if db.Config.Path == "" {
			return fmt.Errorf("sqlite path required")
		}
		dialector = sqlite.Open(db.Config.ConnectionInfo())
	default:
		return fmt.Errorf("unsupported database dialect %q", db.Config.Dialect)
	}

	logLevel := logger.Info
	if isProd {
		logLevel = logger.Silent
	}
	db.Gorm, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(gormWriter{log.WithComponent("gorm")}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("err opening gorm %s connection: %w", db.Config.Dialect, err)
	}

	if db.Config.Dialect == DialectSQLite {
		// sqlite locks the whole file on writes, and every connection to
		// :memory: would see its own empty database.
		sqlDB, err := db.Gorm.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Gorm.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return fmt.Errorf("err enabling sqlite foreign keys: %w", err)
		}
	}
	return nil
}

// models lists every table in dependency order.
func models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Group{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Follow{},
	}
}

// AutoMigrate runs database migrations for all tables.
func AutoMigrate(db *DB) error {
	return db.Gorm.AutoMigrate(models()...)
}

// DestructiveReset drops all tables and rebuilds them.
func DestructiveReset(db *DB) error {
	tables := models()
	// Drop dependants first so that foreign keys never block a drop.
	for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
		tables[i], tables[j] = tables[j], tables[i]
	}
	if err := db.Gorm.Migrator().DropTable(tables...); err != nil {
		return err
	}
	return AutoMigrate(db)
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDb, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

// gormWriter routes gorm's log output through the app logger.
type gormWriter struct {
	logger zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Debug().Msgf(format, args...)
}
