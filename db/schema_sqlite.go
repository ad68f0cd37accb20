package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gorm.io/gorm"
)

type sqliteObject struct {
	Type string
	Name string
	SQL  string
}

// OpenSQLiteSource opens an existing SQLite database. Unlike OpenSQLite it
// refuses to create a missing file.
func OpenSQLiteSource(fsys afero.Fs, path string) (*gorm.DB, error) {
	ok, err := afero.Exists(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("sqlite database %s does not exist", path)
	}
	return OpenSQLite(path)
}

// DumpSQLiteDDL returns the stored CREATE statements of every user table,
// view, index and trigger, tables first.
func DumpSQLiteDDL(ctx context.Context, db *gorm.DB) (string, error) {
	var objects []sqliteObject
	err := db.WithContext(ctx).Raw(`
		SELECT type, name, sql
		FROM sqlite_master
		WHERE sql IS NOT NULL
			AND substr(name, 1, 7) <> 'sqlite_'
		ORDER BY CASE type
			WHEN 'table' THEN 0
			WHEN 'view' THEN 1
			WHEN 'index' THEN 2
			ELSE 3 END, name
	`).Scan(&objects).Error
	if err != nil {
		return "", fmt.Errorf("read sqlite_master: %w", err)
	}

	var b strings.Builder
	for i, o := range objects {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimRight(strings.TrimSpace(o.SQL), ";"))
		b.WriteString(";")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String(), nil
}
