package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gestprod/gestprodgo/internal/production"
)

// bulkRecode rewrites calidad/obs across rows and splices the pair into
// each stored product code.
func (r *Router) bulkRecode(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Quality  string `json:"quality"`
		Obs      string `json:"obs"`
		FilterOF string `json:"filter_of"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	result, err := r.store.BulkRecode(production.RecodeRequest{
		Quality:  payload.Quality,
		Obs:      payload.Obs,
		FilterOF: payload.FilterOF,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if result.Updated > 0 {
		r.hub.Refresh("recode", payload.FilterOF)
	}
	respondJSON(w, http.StatusOK, result)
}

// normalize runs the fill-missing-fields pass over the whole table.
func (r *Router) normalize(w http.ResponseWriter, req *http.Request) {
	result, err := r.store.Normalize(time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Updated > 0 {
		r.hub.Refresh("normalize", "")
	}
	respondJSON(w, http.StatusOK, result)
}
