package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// listOFs returns the distinct fabrication orders, numerically sorted.
func (r *Router) listOFs(w http.ResponseWriter, req *http.Request) {
	ofs, err := r.store.DistinctOFs()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ofs)
}

// getOFDetail returns one OF's rolls grouped by sec with weight totals.
func (r *Router) getOFDetail(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	groups, err := r.store.OFDetail(vars["of"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(groups) == 0 {
		respondError(w, http.StatusNotFound, "No rows for that OF")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// exportOF writes the OF's movement file and returns its path.
func (r *Router) exportOF(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	path, lines, err := r.exporter.ExportOF(vars["of"], time.Now())
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	r.hub.Refresh("export", vars["of"])
	respondJSON(w, http.StatusOK, map[string]any{
		"path":  path,
		"lines": lines,
	})
}
