package production

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

// normalizeBatchSize bounds the transaction covering the normalization
// pass; a commit lands every this many updated rows so an interrupted pass
// keeps its progress.
const normalizeBatchSize = 100

// NormalizeResult tallies one normalization pass.
type NormalizeResult struct {
	Updated int
	Skipped int
	Failed  int
}

// Normalize scans every row and fills derivable fields that are missing:
// codigoDeProducto is composed only when blank (an existing code is never
// overwritten here), CantidadEnPrimeraUdM is rewritten from peso whenever
// peso is present, lote defaults to "of/sec", nroOT to the OF number, and
// blank calidad/obs pairs are derived from the product-type code. The pass
// is idempotent: a second run over the same data changes nothing.
//
// Each row commits or rolls back on its own; a bad row is tallied and the
// pass moves on.
func (s *Store) Normalize(now time.Time) (NormalizeResult, error) {
	var result NormalizeResult

	records, err := s.Load("")
	if err != nil {
		return result, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return result, err
	}
	inBatch := 0

	for i, rec := range records {
		if !s.needsNormalization(rec) {
			result.Skipped++
			continue
		}

		cols, vals := s.normalizeChanges(rec, now)
		if len(cols) == 0 {
			result.Skipped++
			continue
		}

		bobina, sec := rec.NaturalKey()
		if bobina == "" || sec == "" {
			log.Printf("⚠️ Skipping row without natural key (%s)", rec.KeyString())
			result.Failed++
			continue
		}

		if err := s.applyInTx(tx, i, cols, vals, bobina, sec); err != nil {
			log.Printf("⚠️ Normalization failed for %s: %v", rec.KeyString(), err)
			result.Failed++
			continue
		}
		result.Updated++
		inBatch++

		if inBatch >= normalizeBatchSize {
			if err := tx.Commit(); err != nil {
				return result, err
			}
			if tx, err = s.db.Begin(); err != nil {
				return result, err
			}
			inBatch = 0
		}
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}

	log.Printf("🔧 Normalization pass: %d updated, %d skipped, %d failed",
		result.Updated, result.Skipped, result.Failed)
	return result, nil
}

// needsNormalization mirrors the load-time row selection: rows with lote,
// nroOT and codigoDeProducto all filled and no peso have nothing to derive.
func (s *Store) needsNormalization(rec *Record) bool {
	if rec.Blank(FieldLote) || rec.Blank(FieldNroOT) || rec.Blank(FieldCodigo) {
		return true
	}
	if rec.Get(FieldPeso) != nil {
		return true
	}
	return rec.Blank(FieldCalidad) || rec.Blank(FieldObs)
}

// normalizeChanges computes the column/value pairs one row needs, applying
// changes to the in-memory record as it goes so later derivations see them.
func (s *Store) normalizeChanges(rec *Record, now time.Time) ([]string, []any) {
	var cols []string
	var vals []any
	set := func(logical string, v any) {
		if rec.Set(logical, v) {
			cols = append(cols, s.fields.Physical(logical))
			vals = append(vals, v)
		}
	}

	// Derive calidad/obs (and producto/date defaults) first so a blank
	// composite code is composed from the derived pair, not from blanks.
	if (rec.Blank(FieldCalidad) || rec.Blank(FieldObs)) && !rec.Blank(FieldCodProd) {
		before := snapshotDerived(rec)
		ApplyQualityDerivation(rec, now)
		for _, logical := range derivedFields {
			if rec.fields.Has(logical) && rec.GetString(logical) != before[logical] {
				cols = append(cols, s.fields.Physical(logical))
				vals = append(vals, rec.GetString(logical))
			}
		}
	}

	if rec.Blank(FieldCodigo) && s.fields.Has(FieldCodigo) {
		code := ComposeCode(
			rec.GetString(FieldAlistamiento),
			rec.GetString(FieldCodProd),
			rec.GetString(FieldCalidad),
			rec.GetString(FieldObs),
			rec.Get(FieldGramaje),
			rec.Get(FieldDiametro),
			rec.Get(FieldAncho),
			s.weightWidth,
		)
		set(FieldCodigo, code)
	}

	if peso := rec.Get(FieldPeso); peso != nil && s.fields.Has(FieldCantidad1) {
		set(FieldCantidad1, FormatQuantity(peso))
	}

	if rec.Blank(FieldLote) && !rec.Blank(FieldOF) && !rec.Blank(FieldSec) {
		set(FieldLote, fmt.Sprintf("%s/%s", rec.GetString(FieldOF), rec.GetString(FieldSec)))
	}

	if rec.Blank(FieldNroOT) && !rec.Blank(FieldOF) {
		set(FieldNroOT, rec.GetString(FieldOF))
	}

	return cols, vals
}

var derivedFields = []string{
	FieldCalidad, FieldObs, FieldProducto, FieldFecha, FieldFechaElab, FieldFechaValidez,
}

func snapshotDerived(rec *Record) map[string]string {
	m := make(map[string]string, len(derivedFields))
	for _, f := range derivedFields {
		m[f] = rec.GetString(f)
	}
	return m
}

// applyInTx runs one row's UPDATE under a savepoint so a failure rolls back
// only that row while the surrounding batch stays open.
func (s *Store) applyInTx(tx *sql.Tx, seq int, cols []string, vals []any, bobina, sec string) error {
	sp := fmt.Sprintf("norm_row_%d", seq)
	if _, err := tx.Exec("SAVEPOINT " + sp); err != nil {
		return err
	}

	assigns := ""
	args := make([]any, 0, len(vals)+2)
	for i, c := range cols {
		if i > 0 {
			assigns += ", "
		}
		assigns += fmt.Sprintf("%q = ?", c)
		args = append(args, s.formatValue(c, vals[i]))
	}
	query := fmt.Sprintf("UPDATE %q SET %s WHERE %q = ? AND %q = ?",
		s.schema.Name, assigns,
		s.fields.Physical(FieldBobinaNum), s.fields.Physical(FieldSec))
	args = append(args, bobina, sec)

	if _, err := tx.Exec(query, args...); err != nil {
		tx.Exec("ROLLBACK TO " + sp)
		tx.Exec("RELEASE " + sp)
		return err
	}
	_, err := tx.Exec("RELEASE " + sp)
	return err
}
