package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mbrettin/cardbase/internal/models"
)

// Dialect identifies the storage engine behind the gorm connection. It is
// detected once from the DSN at startup; the search layer picks its text-search
// strategy from it, never by re-inspecting connection strings per query.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var (
	DB      *gorm.DB
	dialect Dialect
)

// DetectDialect maps a DSN to a Dialect. Anything that is not a postgres URL
// is treated as a sqlite file path.
func DetectDialect(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to the database behind dsn and migrates the schema.
func Open(dsn string) (*gorm.DB, Dialect, error) {
	d := DetectDialect(dsn)

	var dial gorm.Dialector
	switch d {
	case DialectPostgres:
		dial = postgres.Open(dsn)
	default:
		dial = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, d, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Set{},
		&models.Card{},
		&models.SyncRun{},
		&models.CollectionItem{},
	); err != nil {
		return nil, d, fmt.Errorf("failed to migrate schema: %w", err)
	}

	EnsureSearchIndex(db, d)

	return db, d, nil
}

// Initialize opens the global connection used by the server binary.
func Initialize(dsn string) error {
	db, d, err := Open(dsn)
	if err != nil {
		return err
	}
	DB = db
	dialect = d
	log.Printf("Database connected (%s)", d)
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func GetDialect() Dialect {
	return dialect
}
