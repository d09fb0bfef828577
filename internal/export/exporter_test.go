package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gestprod/gestprodgo/internal/database"
	"github.com/gestprod/gestprodgo/internal/production"
)

const testTableDDL = `CREATE TABLE bobina (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	"OF" TEXT,
	bobina_num TEXT,
	sec TEXT,
	alistamiento TEXT,
	codprod TEXT,
	calidad TEXT,
	obs TEXT,
	gramaje REAL,
	diametro REAL,
	ancho REAL,
	peso REAL,
	lote TEXT,
	nroOT TEXT,
	producto TEXT,
	codigoDeProducto TEXT,
	CantidadEnPrimeraUdM TEXT,
	fecha TEXT,
	fechaElaboracion DATE,
	fechaValidezLote DATE,
	turno TEXT,
	tipo_mov TEXT,
	tipomovimiento TEXT,
	segundaUndeMedida TEXT,
	primeraUndeMedida TEXT,
	cantidadensegunda INTEGER,
	cuentacontable TEXT
)`

var testNow = time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)

func newTestStore(t *testing.T) *production.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testTableDDL); err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	store, err := production.NewStore(db, production.DefaultWeightClassWidth)
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	return store
}

func seedRoll(t *testing.T, store *production.Store, of, bobina, sec string, peso float64, turno string) *production.Record {
	t.Helper()
	rec := store.NewRecord()
	rec.Set(production.FieldOF, of)
	rec.Set(production.FieldBobinaNum, bobina)
	rec.Set(production.FieldSec, sec)
	rec.Set(production.FieldAlistamiento, "AB")
	rec.Set(production.FieldCodProd, "01")
	rec.Set(production.FieldGramaje, 80)
	rec.Set(production.FieldDiametro, 120)
	rec.Set(production.FieldAncho, 82.5)
	rec.Set(production.FieldPeso, peso)
	rec.Set(production.FieldTurno, turno)
	if err := store.CreateRecord(rec, "", testNow); err != nil {
		t.Fatalf("Failed to seed roll: %v", err)
	}
	return rec
}

func TestLineFormat(t *testing.T) {
	store := newTestStore(t)
	rec := seedRoll(t, store, "1001", "1", "1", 125.5, "A")

	line := Line(rec, "1001", testNow)
	t.Logf("Line: %s", line)

	want := strings.Join([]string{
		"ALTA", "006", "P1", "AB010100" + "080" + "1200" + "08250", "KG",
		"125,50", "UN", "1", "", "",
		"1001/1", "14/06/2030", "15/06/2025", "", "", "",
		"1001", "", "1401010000", "1/1", "A", "", "1",
	}, ";")
	if line != want {
		t.Errorf("line mismatch:\n got  %q\n want %q", line, want)
	}

	fields := strings.Split(line, ";")
	if len(fields) != 23 {
		t.Errorf("got %d fields, want 23", len(fields))
	}
	// The spare position between turno and producto stays empty
	if fields[21] != "" {
		t.Errorf("field 21 = %q, want empty", fields[21])
	}
}

func TestLineFallbackDefaults(t *testing.T) {
	// A minimal schema without the movement columns falls back to the
	// legacy defaults.
	schema := &database.TableSchema{
		Name: "bobina",
		Columns: []database.Column{
			{Name: "OF", DeclType: "TEXT"},
			{Name: "bobina_num", DeclType: "TEXT"},
			{Name: "sec", DeclType: "TEXT"},
			{Name: "peso", DeclType: "REAL"},
			{Name: "codigoDeProducto", DeclType: "TEXT"},
		},
	}
	rec := production.NewRecord(production.ResolveFields(schema))
	rec.Set(production.FieldOF, "55")
	rec.Set(production.FieldBobinaNum, "7")
	rec.Set(production.FieldSec, "2")
	rec.Set(production.FieldPeso, 88.4)
	rec.Set(production.FieldCodigo, "CD340100045096006125")

	line := Line(rec, "55", testNow)
	fields := strings.Split(line, ";")

	if fields[0] != "S" {
		t.Errorf("tipo_mov fallback = %q, want S", fields[0])
	}
	if fields[1] != "PRODUCCION" {
		t.Errorf("tipomovimiento fallback = %q, want PRODUCCION", fields[1])
	}
	if fields[4] != "KG" {
		t.Errorf("primeraUdM fallback = %q, want KG", fields[4])
	}
	if fields[5] != "88,40" {
		t.Errorf("cantidad from peso = %q, want 88,40", fields[5])
	}
	if fields[10] != "55_7" {
		t.Errorf("lote fallback = %q, want 55_7", fields[10])
	}
	if fields[12] != "15/06/2025" {
		t.Errorf("fechaElaboracion fallback = %q, want today", fields[12])
	}
	if fields[16] != "55" {
		t.Errorf("nroOT fallback = %q, want 55", fields[16])
	}
	// producto falls back to the composite code
	if fields[22] != "CD340100045096006125" {
		t.Errorf("producto fallback = %q", fields[22])
	}
}

func TestExportOF(t *testing.T) {
	store := newTestStore(t)
	seedRoll(t, store, "1001", "1", "1", 125.5, "A")
	seedRoll(t, store, "1001", "2", "1", 100.25, "B")
	seedRoll(t, store, "2002", "3", "1", 50, "A")

	dir := t.TempDir()
	exporter, err := New(store, dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	path, lines, err := exporter.ExportOF("1001", testNow)
	if err != nil {
		t.Fatalf("ExportOF failed: %v", err)
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2", lines)
	}

	wantName := "produccion_OF_1001_20250615_143045.txt"
	if filepath.Base(path) != wantName {
		t.Errorf("filename = %q, want %q", filepath.Base(path), wantName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}
	content := strings.TrimRight(string(data), "\n")
	got := strings.Split(content, "\n")
	if len(got) != 2 {
		t.Fatalf("file has %d lines, want 2", len(got))
	}
	for _, l := range got {
		if strings.Contains(l, "2002") {
			t.Errorf("foreign OF leaked into export: %q", l)
		}
	}
}

func TestExportOFNoRows(t *testing.T) {
	store := newTestStore(t)
	exporter, err := New(store, t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := exporter.ExportOF("9999", testNow); err == nil {
		t.Error("expected error for an OF without rows")
	}
}
