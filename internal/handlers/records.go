package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gestprod/gestprodgo/internal/database"
	"github.com/gestprod/gestprodgo/internal/production"
	"github.com/gorilla/mux"
)

// recordJSON renders a record as a column→value object in the live schema's
// column set.
func recordJSON(rec *production.Record) map[string]any {
	cols, vals := rec.Snapshot()
	m := make(map[string]any, len(cols))
	for i, c := range cols {
		m[c] = vals[i]
	}
	return m
}

// listRecords returns production rows, optionally narrowed by ?of=
func (r *Router) listRecords(w http.ResponseWriter, req *http.Request) {
	records, err := r.store.Load(req.URL.Query().Get("of"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch production rows")
		return
	}
	out := make([]map[string]any, len(records))
	for i, rec := range records {
		out[i] = recordJSON(rec)
	}
	respondJSON(w, http.StatusOK, out)
}

// getRecord returns a single row by natural key
func (r *Router) getRecord(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	rec, err := r.store.FindByNaturalKey(vars["bobina"], vars["sec"])
	if err != nil {
		respondNotFoundOr500(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recordJSON(rec))
}

// createRecord captures a new roll from a column→value payload
func (r *Router) createRecord(w http.ResponseWriter, req *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rec := r.store.NewRecord()
	applyPayload(rec, r.store, payload)

	productName := r.catalog.ProductName(rec.GetString(production.FieldCodProd))
	if err := r.store.CreateRecord(rec, productName, time.Now()); err != nil {
		var pe *production.PersistenceError
		if errors.As(err, &pe) && pe.Op == "insert" {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.hub.Refresh("records", rec.GetString(production.FieldOF))
	respondJSON(w, http.StatusCreated, recordJSON(rec))
}

// copyRecord duplicates a roll under a new natural key
func (r *Router) copyRecord(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Bobina    string `json:"bobina_num"`
		Sec       string `json:"sec"`
		NewBobina string `json:"new_bobina_num"`
		NewSec    string `json:"new_sec"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rec, err := r.store.CopyRecord(payload.Bobina, payload.Sec, payload.NewBobina, payload.NewSec, time.Now())
	if err != nil {
		respondNotFoundOr500(w, err)
		return
	}

	r.hub.Refresh("records", rec.GetString(production.FieldOF))
	respondJSON(w, http.StatusCreated, recordJSON(rec))
}

// updateRecord edits a row in place. The payload is a column→value object;
// columns the live table does not carry are skipped with a warning. The
// composite product code is only rebuilt when a column feeding one of its
// segments changes: structural columns recompose it in full, a calidad/obs
// change is spliced into positions 4:8, and any other edit leaves the
// stored code untouched. Hand-entered codes with prefixes the lookup
// tables do not know survive edits that never touch a code segment.
func (r *Router) updateRecord(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	var payload map[string]any
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rec, err := r.store.FindByNaturalKey(vars["bobina"], vars["sec"])
	if err != nil {
		respondNotFoundOr500(w, err)
		return
	}

	structural := payloadTouches(r.store, payload,
		production.FieldAlistamiento, production.FieldCodProd,
		production.FieldGramaje, production.FieldDiametro, production.FieldAncho)
	quality := payloadTouches(r.store, payload,
		production.FieldCalidad, production.FieldObs)

	cols, vals := applyPayload(rec, r.store, payload)
	if len(cols) == 0 {
		respondError(w, http.StatusBadRequest, "No editable columns in payload")
		return
	}

	if rec.Blank(production.FieldCalidad) || rec.Blank(production.FieldObs) {
		production.ApplyQualityDerivation(rec, time.Now())
		cols, vals = appendField(rec, r.store, cols, vals, production.FieldCalidad)
		cols, vals = appendField(rec, r.store, cols, vals, production.FieldObs)
		quality = true
	}

	if r.store.Fields().Has(production.FieldCodigo) {
		switch {
		case structural:
			rec.Set(production.FieldCodigo, composeFromRecord(rec, r.store.WeightClassWidth()))
			cols, vals = appendField(rec, r.store, cols, vals, production.FieldCodigo)
		case quality:
			if code := rec.GetString(production.FieldCodigo); code != "" {
				rec.Set(production.FieldCodigo, production.SpliceQualityObs(code,
					rec.GetString(production.FieldCalidad),
					rec.GetString(production.FieldObs)))
			} else {
				rec.Set(production.FieldCodigo, composeFromRecord(rec, r.store.WeightClassWidth()))
			}
			cols, vals = appendField(rec, r.store, cols, vals, production.FieldCodigo)
		}
	}

	if _, err := r.store.Update(cols, vals,
		[]string{production.FieldBobinaNum, production.FieldSec},
		[]any{vars["bobina"], vars["sec"]}); err != nil {
		respondNotFoundOr500(w, err)
		return
	}

	r.hub.Refresh("records", rec.GetString(production.FieldOF))
	respondJSON(w, http.StatusOK, recordJSON(rec))
}

// deleteRecord removes a row by natural key
func (r *Router) deleteRecord(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	deleted, err := r.store.DeleteByNaturalKey(vars["bobina"], vars["sec"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete row")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "No row with that bobina/sec")
		return
	}
	r.hub.Refresh("records", "")
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// applyPayload copies payload values onto the record for every column the
// live table carries, returning the touched physical columns and values.
func applyPayload(rec *production.Record, store *production.Store, payload map[string]any) ([]string, []any) {
	var cols []string
	var vals []any
	schema := store.Schema()
	for k, v := range payload {
		if !schema.HasColumn(k) {
			log.Printf("⚠️ Ignoring unknown column %q in payload", k)
			continue
		}
		phys := schema.ColumnName(k)
		rec.SetColumn(phys, v)
		cols = append(cols, phys)
		vals = append(vals, v)
	}
	return cols, vals
}

// payloadTouches reports whether the payload names any of the given logical
// fields' physical columns, matched case-insensitively like the rest of the
// column handling.
func payloadTouches(store *production.Store, payload map[string]any, logicals ...string) bool {
	for _, logical := range logicals {
		phys := store.Fields().Physical(logical)
		if phys == "" {
			continue
		}
		for k := range payload {
			if strings.EqualFold(k, phys) {
				return true
			}
		}
	}
	return false
}

// composeFromRecord rebuilds the full composite code from the row's current
// segment source fields.
func composeFromRecord(rec *production.Record, weightWidth int) string {
	return production.ComposeCode(
		rec.GetString(production.FieldAlistamiento),
		rec.GetString(production.FieldCodProd),
		rec.GetString(production.FieldCalidad),
		rec.GetString(production.FieldObs),
		rec.Get(production.FieldGramaje),
		rec.Get(production.FieldDiametro),
		rec.Get(production.FieldAncho),
		weightWidth,
	)
}

// appendField adds one logical field's current value to a column/value
// pair list, replacing an earlier entry for the same column.
func appendField(rec *production.Record, store *production.Store, cols []string, vals []any, logical string) ([]string, []any) {
	phys := store.Fields().Physical(logical)
	if phys == "" {
		return cols, vals
	}
	for i, c := range cols {
		if c == phys {
			vals[i] = rec.Column(phys)
			return cols, vals
		}
	}
	return append(cols, phys), append(vals, rec.Column(phys))
}

// respondNotFoundOr500 maps soft persistence misses to 404 and schema
// problems to 400, everything else to 500.
func respondNotFoundOr500(w http.ResponseWriter, err error) {
	var pe *production.PersistenceError
	if errors.As(err, &pe) && pe.Soft {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	var se *database.SchemaError
	if errors.As(err, &se) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
