// Package export renders production rows into the semicolon-delimited
// movement files the ERP imports, one line per roll.
package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gestprod/gestprodgo/internal/production"
)

// Exporter writes per-OF movement files into a target directory.
type Exporter struct {
	store *production.Store
	dir   string
}

// New returns an exporter writing under dir, creating it if needed.
func New(store *production.Store, dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export dir %s: %w", dir, err)
	}
	return &Exporter{store: store, dir: dir}, nil
}

// ExportOF writes every row of one fabrication order to a timestamped text
// file and returns its path and line count.
func (e *Exporter) ExportOF(of string, now time.Time) (string, int, error) {
	records, err := e.store.LoadByOF(of)
	if err != nil {
		return "", 0, err
	}
	if len(records) == 0 {
		return "", 0, fmt.Errorf("export: no rows for OF %s", of)
	}

	name := fmt.Sprintf("produccion_OF_%s_%s.txt", of, now.Format("20060102_150405"))
	path := filepath.Join(e.dir, name)

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(Line(rec, of, now))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", 0, err
	}

	log.Printf("📤 Exported OF %s: %d lines → %s", of, len(records), path)
	return path, len(records), nil
}

// Line renders one roll as the ERP movement line. Field order is fixed by
// the importer; empty positions stay empty, including the spare field
// between turno and producto.
func Line(rec *production.Record, of string, now time.Time) string {
	bobina, sec := rec.NaturalKey()

	tipoMov := column(rec, "tipo_mov", "S")
	tipoMovimiento := column(rec, "tipomovimiento", "PRODUCCION")
	codigo := rec.GetString(production.FieldCodigo)
	primeraUdM := column(rec, "primeraundemedida", "KG")
	cantidad := quantity(rec)
	segundaUdM := column(rec, "segundaundemedida", "")
	cantidadSegunda := column(rec, "cantidadensegunda", "")
	lote := rec.GetString(production.FieldLote)
	if lote == "" {
		lote = fmt.Sprintf("%s_%s", of, bobina)
	}
	fechaValidez := rec.GetString(production.FieldFechaValidez)
	fechaElab := rec.GetString(production.FieldFechaElab)
	if fechaElab == "" {
		fechaElab = rec.GetString(production.FieldFecha)
	}
	if fechaElab == "" {
		fechaElab = now.Format("02/01/2006")
	}
	nroOT := rec.GetString(production.FieldNroOT)
	if nroOT == "" {
		nroOT = of
	}
	cuenta := column(rec, "cuentacontable", "")
	turno := rec.GetString(production.FieldTurno)
	producto := rec.GetString(production.FieldProducto)
	if producto == "" {
		producto = codigo
	}

	fields := []string{
		tipoMov, tipoMovimiento, "P1", codigo, primeraUdM,
		cantidad, segundaUdM, cantidadSegunda, "", "",
		lote, fechaValidez, fechaElab, "", "", "",
		nroOT, "", cuenta, fmt.Sprintf("%s/%s", bobina, sec), turno, "", producto,
	}
	return strings.Join(fields, ";")
}

// quantity prefers the stamped first-unit quantity and falls back to the
// raw peso, both rendered as two comma decimals.
func quantity(rec *production.Record) string {
	if v := rec.Get(production.FieldCantidad1); v != nil {
		if s := rec.GetString(production.FieldCantidad1); s != "" {
			return production.FormatQuantity(s)
		}
	}
	return production.FormatQuantity(rec.Get(production.FieldPeso))
}

func column(rec *production.Record, name, fallback string) string {
	v := rec.Column(name)
	if v == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return fallback
	}
	return s
}
