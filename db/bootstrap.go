package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"schemameta/model"
)

func silentLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
}

// OpenSQLite opens (or creates) the SQLite file at dbPath without migrating it.
func OpenSQLite(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: silentLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}
	return db, nil
}

// BootstrapSQLite opens the run history database at dbPath and migrates its
// schema.
func BootstrapSQLite(dbPath string) (*gorm.DB, error) {
	db, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.Run{},
		&model.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}
	return db, nil
}
