package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gestprod/gestprodgo/internal/config"
	"github.com/gestprod/gestprodgo/internal/database"
	"github.com/gestprod/gestprodgo/internal/production"
)

const createBobina = `CREATE TABLE IF NOT EXISTS bobina (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	"OF" TEXT,
	bobina_num TEXT,
	sec TEXT,
	alistamiento TEXT,
	codprod TEXT,
	descprod TEXT,
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
	deposito TEXT,
	primeraUndeMedida TEXT,
	segundaUndeMedida TEXT,
	cantidadensegunda INTEGER,
	codclie TEXT,
	cuentacontable TEXT
)`

const demoCatalog = `{
  "Productos": [
    {"codigo": "01", "nombre": "Papel Kraft"},
    {"codigo": "03", "nombre": "Papel Tissue"},
    {"codigo": "05", "nombre": "Carton Liner"}
  ],
  "Alistamiento": [
    {"codigo": "AB", "nombre": "Bobina estandar"},
    {"codigo": "CD", "nombre": "Bobina recortada"}
  ],
  "Calidad": [
    {"codigo": "1", "nombre": "Primera"},
    {"codigo": "3", "nombre": "Segunda"},
    {"codigo": "5", "nombre": "Recorte"}
  ],
  "Observaciones": [
    {"codigo": "00", "nombre": "Sin observaciones"},
    {"codigo": "02", "nombre": "Con defecto"}
  ]
}`

type demoRow struct {
	of, bobina, sec string
	alistamiento    string
	codprod         string
	gramaje         float64
	diametro        float64
	ancho           float64
	peso            float64
	turno           string
}

func main() {
	fmt.Println("🌱 GestProd Demo Data Seeder")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(createBobina); err != nil {
		log.Fatalf("❌ Failed to create bobina table: %v", err)
	}
	fmt.Println("✅ Table bobina ready")

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM bobina").Scan(&count); err != nil {
		log.Fatalf("❌ Failed to count rows: %v", err)
	}
	if count > 0 {
		fmt.Printf("⚠️  Database already has %d rows. Clear it first? (y/N): ", count)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		if _, err := db.Exec("DELETE FROM bobina"); err != nil {
			log.Fatalf("❌ Failed to clear table: %v", err)
		}
		fmt.Println("🗑️  Data cleared")
	}

	store, err := production.NewStore(db, cfg.Codes.WeightClassWidth)
	if err != nil {
		log.Fatalf("❌ Failed to bind production table: %v", err)
	}

	rows := []demoRow{
		{"1001", "1", "1", "AB", "01", 80, 120, 82.5, 125.5, "A"},
		{"1001", "2", "1", "AB", "01", 80, 118, 82.5, 122.3, "A"},
		{"1001", "1", "2", "AB", "01", 80, 121, 90, 130.8, "B"},
		{"1002", "1", "1", "CD", "03", 45.5, 95.2, 61.25, 88.4, "A"},
		{"1002", "2", "1", "CD", "03", 45.5, 96, 61.25, 90.1, "C"},
		{"987", "1", "1", "AB", "05", 120, 140, 105.4, 210.75, "B"},
	}

	fmt.Println("📦 Creating demo rolls...")
	now := time.Now()
	for _, d := range rows {
		rec := store.NewRecord()
		rec.Set(production.FieldOF, d.of)
		rec.Set(production.FieldBobinaNum, d.bobina)
		rec.Set(production.FieldSec, d.sec)
		rec.Set(production.FieldAlistamiento, d.alistamiento)
		rec.Set(production.FieldCodProd, d.codprod)
		rec.Set(production.FieldGramaje, d.gramaje)
		rec.Set(production.FieldDiametro, d.diametro)
		rec.Set(production.FieldAncho, d.ancho)
		rec.Set(production.FieldPeso, d.peso)
		rec.Set(production.FieldTurno, d.turno)

		if err := store.CreateRecord(rec, "", now); err != nil {
			log.Fatalf("❌ Failed to seed roll %s/%s: %v", d.bobina, d.sec, err)
		}
		fmt.Printf("   🧻 OF %s bobina %s/%s → %s\n",
			d.of, d.bobina, d.sec, rec.GetString(production.FieldCodigo))
	}

	if _, err := os.Stat(cfg.Lookup.Path); os.IsNotExist(err) {
		if err := os.WriteFile(cfg.Lookup.Path, []byte(demoCatalog), 0o644); err != nil {
			log.Printf("⚠️ Could not write demo catalog: %v", err)
		} else {
			fmt.Printf("✅ Demo catalog written to %s\n", cfg.Lookup.Path)
		}
	}

	fmt.Printf("✅ Seeded %d rolls into %s\n", len(rows), cfg.Database.Path)
}
