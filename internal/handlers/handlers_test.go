package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gestprod/gestprodgo/internal/database"
	"github.com/gestprod/gestprodgo/internal/export"
	"github.com/gestprod/gestprodgo/internal/lookup"
	"github.com/gestprod/gestprodgo/internal/notify"
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
	turno TEXT
)`

func newTestRouter(t *testing.T) *Router {
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

	exporter, err := export.New(store, t.TempDir())
	if err != nil {
		t.Fatalf("Failed to build exporter: %v", err)
	}

	hub := notify.NewHub()
	go hub.Run()

	return NewRouter(store, &lookup.Catalog{}, exporter, hub)
}

func doJSON(t *testing.T, router *Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func createTestRoll(t *testing.T, router *Router, of, bobina, sec string, peso float64) {
	t.Helper()
	rr := doJSON(t, router, "POST", "/api/records", map[string]any{
		"OF":           of,
		"bobina_num":   bobina,
		"sec":          sec,
		"alistamiento": "AB",
		"codprod":      "01",
		"gramaje":      80,
		"diametro":     120,
		"ancho":        82.5,
		"peso":         peso,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)
	rr := doJSON(t, router, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health returned %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" || body["table"] != "bobina" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestSchemaEndpointOrdersColumns(t *testing.T) {
	router := newTestRouter(t)
	rr := doJSON(t, router, "GET", "/api/schema", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("schema returned %d", rr.Code)
	}
	var body struct {
		Table   string   `json:"table"`
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(body.Columns) == 0 {
		t.Fatal("schema returned no columns")
	}
	if body.Columns[0] != "OF" {
		t.Errorf("first column = %q, want OF", body.Columns[0])
	}
	if body.Columns[1] != "bobina_num" || body.Columns[2] != "sec" {
		t.Errorf("key columns out of order: %v", body.Columns[:3])
	}
	for _, c := range body.Columns {
		if c == "id" {
			t.Error("id column should not be exposed")
		}
	}
}

func TestCreateAndListRecords(t *testing.T) {
	router := newTestRouter(t)
	createTestRoll(t, router, "1001", "1", "1", 125.5)

	rr := doJSON(t, router, "GET", "/api/records", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list returned %d", rr.Code)
	}
	var rows []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["codigoDeProducto"] != "AB010100"+"080"+"1200"+"08250" {
		t.Errorf("codigoDeProducto = %v", rows[0]["codigoDeProducto"])
	}
	if rows[0]["CantidadEnPrimeraUdM"] != "125,50" {
		t.Errorf("CantidadEnPrimeraUdM = %v", rows[0]["CantidadEnPrimeraUdM"])
	}
}

func TestCreateDuplicateReturnsConflict(t *testing.T) {
	router := newTestRouter(t)
	createTestRoll(t, router, "1001", "1", "1", 100)

	rr := doJSON(t, router, "POST", "/api/records", map[string]any{
		"bobina_num": "1", "sec": "1",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate create returned %d, want 409", rr.Code)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	router := newTestRouter(t)
	rr := doJSON(t, router, "GET", "/api/records/9/9", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing row returned %d, want 404", rr.Code)
	}
}

func TestUpdateRecordRecomposesCode(t *testing.T) {
	router := newTestRouter(t)
	createTestRoll(t, router, "1001", "1", "1", 125.5)

	rr := doJSON(t, router, "PUT", "/api/records/1/1", map[string]any{
		"ancho": 90,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["codigoDeProducto"] != "AB010100"+"080"+"1200"+"09000" {
		t.Errorf("codigoDeProducto not recomposed: %v", body["codigoDeProducto"])
	}
}

func TestUpdateTurnoKeepsHandEnteredCode(t *testing.T) {
	router := newTestRouter(t)

	// Hand-maintained code on a row whose alistamiento/codprod columns are
	// blank. Recomposing from columns would destroy the XY prefix.
	handCode := "XY010100080120008250"
	rr := doJSON(t, router, "POST", "/api/records", map[string]any{
		"OF":               "1001",
		"bobina_num":       "1",
		"sec":              "1",
		"calidad":          "01",
		"obs":              "00",
		"codigoDeProducto": handCode,
		"turno":            "A",
		"peso":             125.5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, "PUT", "/api/records/1/1", map[string]any{
		"turno": "B",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["turno"] != "B" {
		t.Errorf("turno = %v, want B", body["turno"])
	}
	if body["codigoDeProducto"] != handCode {
		t.Errorf("codigoDeProducto = %v, want %s untouched", body["codigoDeProducto"], handCode)
	}

	rr = doJSON(t, router, "GET", "/api/records/1/1", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["codigoDeProducto"] != handCode {
		t.Errorf("stored codigoDeProducto = %v, want %s", body["codigoDeProducto"], handCode)
	}
}

func TestUpdateQualitySplicesHandEnteredCode(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, "POST", "/api/records", map[string]any{
		"OF":               "1001",
		"bobina_num":       "1",
		"sec":              "1",
		"calidad":          "01",
		"obs":              "00",
		"codigoDeProducto": "XY010100080120008250",
		"peso":             125.5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, "PUT", "/api/records/1/1", map[string]any{
		"calidad": "05", "obs": "02",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	// Only positions 4:8 change; the unknown XY prefix and the measurement
	// suffix are carried verbatim.
	if body["codigoDeProducto"] != "XY010502080120008250" {
		t.Errorf("codigoDeProducto = %v, want XY010502080120008250", body["codigoDeProducto"])
	}
}

func TestDeleteRecord(t *testing.T) {
	router := newTestRouter(t)
	createTestRoll(t, router, "1001", "1", "1", 100)

	rr := doJSON(t, router, "DELETE", "/api/records/1/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rr.Code)
	}
	rr = doJSON(t, router, "DELETE", "/api/records/1/1", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete returned %d, want 404", rr.Code)
	}
}

func TestBulkRecodeEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createTestRoll(t, router, "1001", "1", "1", 100)
	createTestRoll(t, router, "1001", "2", "1", 100)

	rr := doJSON(t, router, "POST", "/api/recode", map[string]any{
		"quality": "05", "obs": "02",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("recode returned %d: %s", rr.Code, rr.Body.String())
	}
	var result production.RecodeResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Updated != 2 {
		t.Errorf("updated = %d, want 2", result.Updated)
	}

	// Invalid request is rejected before touching rows
	rr = doJSON(t, router, "POST", "/api/recode", map[string]any{
		"quality": "5", "obs": "02",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid recode returned %d, want 400", rr.Code)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createTestRoll(t, router, "1001", "1", "1", 100)

	rr := doJSON(t, router, "POST", "/api/normalize", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("normalize returned %d: %s", rr.Code, rr.Body.String())
	}
	var result production.NormalizeResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d, want 0", result.Failed)
	}
}

func TestOFEndpoints(t *testing.T) {
	router := newTestRouter(t)
	createTestRoll(t, router, "100", "1", "1", 10)
	createTestRoll(t, router, "9", "1", "2", 20)

	rr := doJSON(t, router, "GET", "/api/ofs", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("ofs returned %d", rr.Code)
	}
	var ofs []string
	if err := json.Unmarshal(rr.Body.Bytes(), &ofs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(ofs) != 2 || ofs[0] != "9" || ofs[1] != "100" {
		t.Errorf("ofs = %v, want [9 100]", ofs)
	}

	rr = doJSON(t, router, "GET", "/api/ofs/100", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("of detail returned %d", rr.Code)
	}
	var groups []production.DetailGroup
	if err := json.Unmarshal(rr.Body.Bytes(), &groups); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(groups) != 1 || groups[0].TotalPeso != 10 {
		t.Errorf("groups = %+v", groups)
	}

	rr = doJSON(t, router, "GET", "/api/ofs/404", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing OF detail returned %d, want 404", rr.Code)
	}

	rr = doJSON(t, router, "POST", "/api/ofs/100/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export returned %d: %s", rr.Code, rr.Body.String())
	}
	var exportResult map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &exportResult); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if exportResult["lines"] != float64(1) {
		t.Errorf("lines = %v, want 1", exportResult["lines"])
	}
}
