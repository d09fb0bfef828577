package production

import (
	"fmt"
	"strings"

	"github.com/gestprod/gestprodgo/internal/database"
)

// Logical field names used by the core. Physical column names and their
// capitalization vary between deployed databases; the FieldMap resolves each
// logical name to the live column once per load.
const (
	FieldOF           = "of"
	FieldBobinaNum    = "bobina_num"
	FieldSec          = "sec"
	FieldAlistamiento = "alistamiento"
	FieldCodProd      = "codprod"
	FieldDescProd     = "descprod"
	FieldCalidad      = "calidad"
	FieldObs          = "obs"
	FieldGramaje      = "gramaje"
	FieldDiametro     = "diametro"
	FieldAncho        = "ancho"
	FieldPeso         = "peso"
	FieldLote         = "lote"
	FieldNroOT        = "nroOT"
	FieldProducto     = "producto"
	FieldCodigo       = "codigoDeProducto"
	FieldCantidad1    = "CantidadEnPrimeraUdM"
	FieldFecha        = "fecha"
	FieldFechaElab    = "fechaElaboracion"
	FieldFechaValidez = "fechaValidezLote"
	FieldTurno        = "turno"
)

// FieldMap maps logical field names to the physical columns of the
// discovered schema. Resolution is case-insensitive and happens once per
// connection; rows then address values by physical name, never by position.
type FieldMap struct {
	Schema   *database.TableSchema
	physical map[string]string // lower-cased logical -> physical
}

// ResolveFields builds the logical-to-physical mapping for a schema.
func ResolveFields(schema *database.TableSchema) *FieldMap {
	fm := &FieldMap{
		Schema:   schema,
		physical: make(map[string]string, len(schema.Columns)),
	}
	for _, logical := range []string{
		FieldOF, FieldBobinaNum, FieldSec, FieldAlistamiento, FieldCodProd,
		FieldDescProd, FieldCalidad, FieldObs, FieldGramaje, FieldDiametro,
		FieldAncho, FieldPeso, FieldLote, FieldNroOT, FieldProducto,
		FieldCodigo, FieldCantidad1, FieldFecha, FieldFechaElab,
		FieldFechaValidez, FieldTurno,
	} {
		if phys := schema.ColumnName(logical); phys != "" {
			fm.physical[strings.ToLower(logical)] = phys
		}
	}
	return fm
}

// Has reports whether the logical field exists in the live schema.
func (fm *FieldMap) Has(logical string) bool {
	_, ok := fm.physical[strings.ToLower(logical)]
	return ok
}

// Physical returns the live column name for a logical field, or "".
func (fm *FieldMap) Physical(logical string) string {
	return fm.physical[strings.ToLower(logical)]
}

// Record is one row of the production table: values keyed by physical column
// name (case preserved), with logical access through the FieldMap. Columns
// the core does not know about travel in the same map untouched.
type Record struct {
	fields *FieldMap
	values map[string]any // keyed by lower-cased physical column name
}

// NewRecord creates an empty record for the mapped schema.
func NewRecord(fields *FieldMap) *Record {
	return &Record{
		fields: fields,
		values: make(map[string]any, len(fields.Schema.Columns)),
	}
}

// Fields returns the record's field map.
func (r *Record) Fields() *FieldMap { return r.fields }

// Get returns the raw value of a logical field (nil when the column is
// absent or the value is NULL).
func (r *Record) Get(logical string) any {
	phys := r.fields.Physical(logical)
	if phys == "" {
		return nil
	}
	return r.values[strings.ToLower(phys)]
}

// GetString returns the trimmed string form of a logical field, "" for NULL.
func (r *Record) GetString(logical string) string {
	v := r.Get(logical)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(asString(v))
}

// Blank reports whether a logical field is NULL, absent, or whitespace.
func (r *Record) Blank(logical string) bool {
	return r.GetString(logical) == ""
}

// Set stores a value under a logical field. Returns false when the live
// schema has no such column, so callers skip derivations that cannot land.
func (r *Record) Set(logical string, value any) bool {
	phys := r.fields.Physical(logical)
	if phys == "" {
		return false
	}
	r.values[strings.ToLower(phys)] = value
	return true
}

// SetColumn stores a value under a physical column name regardless of
// whether the core knows the column.
func (r *Record) SetColumn(column string, value any) {
	r.values[strings.ToLower(column)] = value
}

// Column returns the raw value stored under a physical column name.
func (r *Record) Column(column string) any {
	return r.values[strings.ToLower(column)]
}

// NaturalKey returns the (bobina_num, sec) pair as strings.
func (r *Record) NaturalKey() (string, string) {
	return r.GetString(FieldBobinaNum), r.GetString(FieldSec)
}

// KeyString renders the natural key for log and error messages.
func (r *Record) KeyString() string {
	b, s := r.NaturalKey()
	return fmt.Sprintf("bobina=%s/sec=%s", b, s)
}

// Snapshot returns column names and values in schema declaration order,
// for INSERT statements covering the whole row.
func (r *Record) Snapshot() ([]string, []any) {
	cols := r.fields.Schema.ColumnNames()
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = r.values[strings.ToLower(c)]
	}
	return cols, vals
}

// asString renders a dynamically-typed SQLite value without a float suffix
// for whole numbers (SQLite hands back int64/float64/string/[]byte).
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
