package database

import (
	"fmt"
	"strings"
)

// Column describes one column of the discovered production table
type Column struct {
	Name     string // case preserved as declared
	DeclType string // declared type, upper-cased
}

// TableSchema is the result of schema discovery. Deployed databases vary in
// table capitalization and column presence, so the schema is re-derived on
// every connect and never cached across runs.
type TableSchema struct {
	Name    string
	Columns []Column
}

// SchemaError reports a missing table or missing natural-key column, carrying
// what actually exists so the operator can diagnose a mis-provisioned file.
type SchemaError struct {
	Kind      string // "TableNotFound" or "ColumnMissing"
	Missing   string
	Available []string
}

func (e *SchemaError) Error() string {
	switch e.Kind {
	case "TableNotFound":
		return fmt.Sprintf("production table %q not found; available tables: %s",
			e.Missing, strings.Join(e.Available, ", "))
	case "ColumnMissing":
		return fmt.Sprintf("required column %q missing; available columns: %s",
			e.Missing, strings.Join(e.Available, ", "))
	}
	return "schema error"
}

// HasColumn reports whether the schema declares the column, case-insensitively.
func (s *TableSchema) HasColumn(name string) bool {
	return s.ColumnName(name) != ""
}

// ColumnName returns the physical (case-preserved) column name for a logical
// name, or "" when the column is absent.
func (s *TableSchema) ColumnName(logical string) string {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, logical) {
			return c.Name
		}
	}
	return ""
}

// ColumnNames returns the physical column names in declaration order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// DeclaredType returns the declared type of a column (upper-cased), or "".
func (s *TableSchema) DeclaredType(name string) string {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c.DeclType
		}
	}
	return ""
}

// ResolveTable locates the production table ("bobina" or "bobinas",
// case-insensitive) and reads its column metadata.
func (db *DB) ResolveTable() (*TableSchema, error) {
	row := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND (LOWER(name) = 'bobina' OR LOWER(name) = 'bobinas')")

	var name string
	if err := row.Scan(&name); err != nil {
		tables, listErr := db.listTables()
		if listErr != nil {
			return nil, fmt.Errorf("failed to list tables: %w", listErr)
		}
		return nil, &SchemaError{Kind: "TableNotFound", Missing: "bobina", Available: tables}
	}

	schema := &TableSchema{Name: name}
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			colName    string
			declType   string
			notNull    int
			dfltValue  any
			primaryKey int
		)
		if err := rows.Scan(&cid, &colName, &declType, &notNull, &dfltValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		schema.Columns = append(schema.Columns, Column{
			Name:     colName,
			DeclType: strings.ToUpper(declType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The natural key is the only hard requirement; every other column is
	// optional and derivations degrade gracefully without it.
	for _, key := range []string{"bobina_num", "sec"} {
		if !schema.HasColumn(key) {
			return nil, &SchemaError{Kind: "ColumnMissing", Missing: key, Available: schema.ColumnNames()}
		}
	}

	return schema, nil
}

func (db *DB) listTables() ([]string, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
