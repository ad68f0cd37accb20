package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by *pgx.Conn and *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgColumn struct {
	Name      string
	DataType  string
	MaxLength *int32
	Nullable  bool
	Default   *string
}

// pgForeignKey is one constraint; Columns[i] references RefColumns[i].
type pgForeignKey struct {
	ConstraintName string
	Columns        []string
	RefTable       string
	RefColumns     []string
}

type pgTable struct {
	Name        string
	Columns     []pgColumn
	PrimaryKey  []string
	ForeignKeys []pgForeignKey
}

// OpenPostgres connects to dsn and checks the connection.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// DumpPostgresDDL rebuilds a CREATE TABLE statement for every base table in
// schema from information_schema. Columns, nullability, defaults, primary and
// foreign keys are included; indexes and checks are not.
func DumpPostgresDDL(ctx context.Context, q Querier, schema string) (string, error) {
	names, err := pgTables(ctx, q, schema)
	if err != nil {
		return "", fmt.Errorf("list tables in %s: %w", schema, err)
	}

	stmts := make([]string, 0, len(names))
	for _, name := range names {
		t := pgTable{Name: name}
		if t.Columns, err = pgColumns(ctx, q, schema, name); err != nil {
			return "", fmt.Errorf("columns of %s: %w", name, err)
		}
		if t.PrimaryKey, err = pgPrimaryKey(ctx, q, schema, name); err != nil {
			return "", fmt.Errorf("primary key of %s: %w", name, err)
		}
		if t.ForeignKeys, err = pgForeignKeys(ctx, q, schema, name); err != nil {
			return "", fmt.Errorf("foreign keys of %s: %w", name, err)
		}
		stmts = append(stmts, renderCreateTable(t))
	}
	if len(stmts) == 0 {
		return "", nil
	}
	return strings.Join(stmts, "\n\n") + "\n", nil
}

func renderCreateTable(t pgTable) string {
	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	for _, c := range t.Columns {
		line := "    " + quoteIdent(c.Name) + " " + c.DataType
		if c.MaxLength != nil {
			line += fmt.Sprintf("(%d)", *c.MaxLength)
		}
		if !c.Nullable {
			line += " NOT NULL"
		}
		if c.Default != nil {
			line += " DEFAULT " + *c.Default
		}
		lines = append(lines, line)
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, "    PRIMARY KEY ("+quoteIdents(t.PrimaryKey)+")")
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(fk.ConstraintName), quoteIdents(fk.Columns), quoteIdent(fk.RefTable), quoteIdents(fk.RefColumns)))
	}
	return "CREATE TABLE " + quoteIdent(t.Name) + " (\n" + strings.Join(lines, ",\n") + "\n);"
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func pgTables(ctx context.Context, q Querier, schema string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
			AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func pgColumns(ctx context.Context, q Querier, schema, table string) ([]pgColumn, error) {
	rows, err := q.Query(ctx, `
		SELECT column_name::text,
			data_type::text,
			character_maximum_length::int4,
			is_nullable::text = 'YES',
			column_default::text
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []pgColumn
	for rows.Next() {
		var c pgColumn
		if err := rows.Scan(&c.Name, &c.DataType, &c.MaxLength, &c.Nullable, &c.Default); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func pgPrimaryKey(ctx context.Context, q Querier, schema, table string) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT kcu.column_name::text
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// pgForeignKeys reads foreign keys from pg_constraint so that the columns of
// a composite key stay paired in declaration order.
func pgForeignKeys(ctx context.Context, q Querier, schema, table string) ([]pgForeignKey, error) {
	rows, err := q.Query(ctx, `
		SELECT c.conname::text,
			a.attname::text,
			rt.relname::text,
			ra.attname::text
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class rt ON rt.oid = c.confrelid
		CROSS JOIN LATERAL unnest(c.conkey, c.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord)
		JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute ra ON ra.attrelid = c.confrelid AND ra.attnum = k.refattnum
		WHERE c.contype = 'f'
			AND n.nspname = $1
			AND t.relname = $2
		ORDER BY c.conname, k.ord
	`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []pgForeignKey
	for rows.Next() {
		var name, column, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		fks = appendForeignKeyColumn(fks, name, column, refTable, refColumn)
	}
	return fks, rows.Err()
}

// appendForeignKeyColumn adds one column pair, starting a new constraint when
// name differs from the last one. Rows must arrive grouped by constraint.
func appendForeignKeyColumn(fks []pgForeignKey, name, column, refTable, refColumn string) []pgForeignKey {
	if n := len(fks); n > 0 && fks[n-1].ConstraintName == name {
		fks[n-1].Columns = append(fks[n-1].Columns, column)
		fks[n-1].RefColumns = append(fks[n-1].RefColumns, refColumn)
		return fks
	}
	return append(fks, pgForeignKey{
		ConstraintName: name,
		Columns:        []string{column},
		RefTable:       refTable,
		RefColumns:     []string{refColumn},
	})
}
