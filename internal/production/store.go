package production

import (
	"fmt"
	"log"
	"strings"

	"github.com/gestprod/gestprodgo/internal/database"
)

// PersistenceError reports a failed row write. Soft marks an UPDATE or
// DELETE whose predicate matched no row (no driver error, nothing changed),
// as opposed to a hard statement failure.
type PersistenceError struct {
	Op   string // "insert", "update", "delete"
	Key  string // natural key, when known
	Soft bool
	Err  error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("%s failed for row %s", e.Op, e.Key)
	if e.Soft {
		return msg + ": no row matched"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the persistence gateway for the discovered production table.
// Every write commits on its own statement; rows are always addressed by
// the (bobina_num, sec) natural key, never by rowid or a surrogate.
type Store struct {
	db          *database.DB
	schema      *database.TableSchema
	fields      *FieldMap
	weightWidth int
}

// NewStore discovers the production table on the open database and builds
// the field mapping. Discovery runs on every connect: the same binary may
// point at differently-provisioned files between runs.
func NewStore(db *database.DB, weightWidth int) (*Store, error) {
	schema, err := db.ResolveTable()
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Using production table %q (%d columns)", schema.Name, len(schema.Columns))
	return &Store{
		db:          db,
		schema:      schema,
		fields:      ResolveFields(schema),
		weightWidth: weightWidth,
	}, nil
}

// Schema returns the discovered table schema.
func (s *Store) Schema() *database.TableSchema { return s.schema }

// Fields returns the resolved logical-to-physical field map.
func (s *Store) Fields() *FieldMap { return s.fields }

// WeightClassWidth returns the configured gramaje segment width.
func (s *Store) WeightClassWidth() int { return s.weightWidth }

// NewRecord creates an empty record bound to the live schema.
func (s *Store) NewRecord() *Record { return NewRecord(s.fields) }

// Load reads the production rows, optionally filtered by an OF substring.
func (s *Store) Load(filterOF string) ([]*Record, error) {
	query := fmt.Sprintf("SELECT * FROM %q", s.schema.Name)
	var args []any
	if filterOF != "" && s.fields.Has(FieldOF) {
		query += fmt.Sprintf(" WHERE %q LIKE ?", s.fields.Physical(FieldOF))
		args = append(args, "%"+filterOF+"%")
	}
	return s.queryRecords(query, args...)
}

// LoadByOF reads all rows of one exact OF ordered by sec then bobina_num,
// the order the ERP export expects.
func (s *Store) LoadByOF(of string) ([]*Record, error) {
	if !s.fields.Has(FieldOF) {
		return nil, fmt.Errorf("table %s has no OF column", s.schema.Name)
	}
	query := fmt.Sprintf("SELECT * FROM %q WHERE %q = ? ORDER BY %q, %q",
		s.schema.Name,
		s.fields.Physical(FieldOF),
		s.fields.Physical(FieldSec),
		s.fields.Physical(FieldBobinaNum))
	return s.queryRecords(query, of)
}

// DistinctOFs returns the distinct manufacturing-order numbers present.
func (s *Store) DistinctOFs() ([]string, error) {
	if !s.fields.Has(FieldOF) {
		return nil, fmt.Errorf("table %s has no OF column", s.schema.Name)
	}
	rows, err := s.db.Query(fmt.Sprintf("SELECT DISTINCT %q FROM %q ORDER BY %q",
		s.fields.Physical(FieldOF), s.schema.Name, s.fields.Physical(FieldOF)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ofs []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v != nil {
			ofs = append(ofs, strings.TrimSpace(asString(v)))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortOFsNumeric(ofs)
	return ofs, nil
}

func (s *Store) queryRecords(query string, args ...any) ([]*Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read production rows: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []*Record
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := NewRecord(s.fields)
		for i, c := range cols {
			if b, ok := raw[i].([]byte); ok {
				rec.SetColumn(c, string(b))
			} else {
				rec.SetColumn(c, raw[i])
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByNaturalKey reads one row. A missing row is a soft failure.
func (s *Store) FindByNaturalKey(bobinaNum, sec string) (*Record, error) {
	records, err := s.queryRecords(fmt.Sprintf(
		"SELECT * FROM %q WHERE %q = ? AND %q = ?",
		s.schema.Name,
		s.fields.Physical(FieldBobinaNum),
		s.fields.Physical(FieldSec)), bobinaNum, sec)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &PersistenceError{Op: "select",
			Key: fmt.Sprintf("bobina=%s/sec=%s", bobinaNum, sec), Soft: true}
	}
	return records[0], nil
}

// Exists reports whether a row with the natural key is already present.
func (s *Store) Exists(bobinaNum, sec string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %q WHERE %q = ? AND %q = ?",
		s.schema.Name,
		s.fields.Physical(FieldBobinaNum),
		s.fields.Physical(FieldSec))
	var n int
	if err := s.db.QueryRow(query, bobinaNum, sec).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert writes a full row. Date-typed columns pass through FormatDate.
func (s *Store) Insert(rec *Record) error {
	cols, vals := rec.Snapshot()

	names := make([]string, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	args := make([]any, 0, len(vals))
	for i, c := range cols {
		// Skip a surrogate id column entirely: SQLite assigns it and the
		// core never addresses rows by it.
		if strings.EqualFold(c, "id") {
			continue
		}
		names = append(names, fmt.Sprintf("%q", c))
		placeholders = append(placeholders, "?")
		args = append(args, s.formatValue(c, vals[i]))
	}

	query := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		s.schema.Name, strings.Join(names, ","), strings.Join(placeholders, ","))
	if _, err := s.db.Exec(query, args...); err != nil {
		return &PersistenceError{Op: "insert", Key: rec.KeyString(), Err: err}
	}
	return nil
}

// Update builds UPDATE <table> SET ... WHERE k1=? AND k2=?. SET columns
// missing from the live schema are dropped with a warning; a missing WHERE
// column is a hard failure since no safe predicate can be built. Returns
// the affected-row count; 0 is reported via a soft PersistenceError after a
// diagnostic re-query of the key.
func (s *Store) Update(setCols []string, setVals []any, whereCols []string, whereVals []any) (int64, error) {
	if len(setCols) != len(setVals) || len(whereCols) != len(whereVals) {
		return 0, fmt.Errorf("mismatched column/value counts")
	}

	var assigns []string
	var args []any
	for i, c := range setCols {
		if !s.schema.HasColumn(c) {
			log.Printf("⚠️ Column %q not in table %s, dropping from UPDATE", c, s.schema.Name)
			continue
		}
		phys := s.schema.ColumnName(c)
		assigns = append(assigns, fmt.Sprintf("%q = ?", phys))
		args = append(args, s.formatValue(phys, setVals[i]))
	}
	if len(assigns) == 0 {
		return 0, fmt.Errorf("no valid columns to update on %s", s.schema.Name)
	}

	var preds []string
	for i, c := range whereCols {
		if !s.schema.HasColumn(c) {
			return 0, &database.SchemaError{Kind: "ColumnMissing", Missing: c, Available: s.schema.ColumnNames()}
		}
		phys := s.schema.ColumnName(c)
		preds = append(preds, fmt.Sprintf("%q = ?", phys))
		args = append(args, s.formatValue(phys, whereVals[i]))
	}

	query := fmt.Sprintf("UPDATE %q SET %s WHERE %s",
		s.schema.Name, strings.Join(assigns, ", "), strings.Join(preds, " AND "))
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, &PersistenceError{Op: "update", Key: keyFromWhere(whereCols, whereVals), Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		s.diagnoseMiss(whereCols, whereVals)
		return 0, &PersistenceError{Op: "update", Key: keyFromWhere(whereCols, whereVals), Soft: true}
	}
	return affected, nil
}

// UpdateRecord persists a record's calidad, obs and codigoDeProducto by
// natural key, the single-row edit path.
func (s *Store) UpdateRecord(rec *Record) error {
	bobina, sec := rec.NaturalKey()
	if bobina == "" || sec == "" {
		return &PersistenceError{Op: "update", Key: rec.KeyString(),
			Err: fmt.Errorf("natural key incomplete")}
	}

	setCols := []string{FieldCalidad, FieldObs}
	setVals := []any{rec.GetString(FieldCalidad), rec.GetString(FieldObs)}
	if s.fields.Has(FieldCodigo) {
		setCols = append(setCols, s.fields.Physical(FieldCodigo))
		setVals = append(setVals, rec.GetString(FieldCodigo))
	}

	_, err := s.Update(setCols, setVals, []string{FieldBobinaNum, FieldSec}, []any{bobina, sec})
	return err
}

// DeleteByNaturalKey removes one row. Returns false when nothing matched.
func (s *Store) DeleteByNaturalKey(bobinaNum, sec string) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %q WHERE %q = ? AND %q = ?",
		s.schema.Name,
		s.fields.Physical(FieldBobinaNum),
		s.fields.Physical(FieldSec))
	res, err := s.db.Exec(query, bobinaNum, sec)
	if err != nil {
		return false, &PersistenceError{Op: "delete",
			Key: fmt.Sprintf("bobina=%s/sec=%s", bobinaNum, sec), Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// formatValue normalizes a value for its target column: date columns (by
// declared type or by name) go through FormatDate, everything else passes
// unchanged.
func (s *Store) formatValue(column string, value any) any {
	if value == nil {
		return nil
	}
	lower := strings.ToLower(column)
	if strings.Contains(s.schema.DeclaredType(column), "DATE") ||
		lower == "fechavalidezlote" || lower == "fechaelaboracion" {
		return FormatDate(value)
	}
	return value
}

// diagnoseMiss logs what the table actually holds for a missed key, the
// first question support asks when an update reports zero rows.
func (s *Store) diagnoseMiss(whereCols []string, whereVals []any) {
	log.Printf("⚠️ UPDATE matched no row in %s for %s", s.schema.Name, keyFromWhere(whereCols, whereVals))
	if len(whereCols) == 0 || !s.schema.HasColumn(whereCols[0]) {
		return
	}
	phys := s.schema.ColumnName(whereCols[0])
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %q WHERE %q = ?", s.schema.Name, phys)
	if err := s.db.QueryRow(query, whereVals[0]).Scan(&n); err == nil {
		log.Printf("   %d row(s) share %s=%v", n, phys, whereVals[0])
	}
}

func keyFromWhere(cols []string, vals []any) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		var v any
		if i < len(vals) {
			v = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%v", c, v)
	}
	return strings.Join(parts, "/")
}
