package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gestprod/gestprodgo/internal/database"
	"github.com/gestprod/gestprodgo/internal/export"
	"github.com/gestprod/gestprodgo/internal/lookup"
	"github.com/gestprod/gestprodgo/internal/notify"
	"github.com/gestprod/gestprodgo/internal/production"
	"github.com/gorilla/mux"
)

// Router wraps the mux router and the production services
type Router struct {
	*mux.Router
	store    *production.Store
	catalog  *lookup.Catalog
	exporter *export.Exporter
	hub      *notify.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(store *production.Store, catalog *lookup.Catalog, exporter *export.Exporter, hub *notify.Hub) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		store:    store,
		catalog:  catalog,
		exporter: exporter,
		hub:      hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Terminal refresh subscriptions
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		notify.ServeWs(hub, w, req)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/schema", r.getSchema).Methods("GET")
	api.HandleFunc("/lookups", r.getLookups).Methods("GET")

	// Production record routes
	records := r.PathPrefix("/api/records").Subrouter()
	records.HandleFunc("", r.listRecords).Methods("GET")
	records.HandleFunc("", r.createRecord).Methods("POST")
	records.HandleFunc("/copy", r.copyRecord).Methods("POST")
	records.HandleFunc("/{bobina}/{sec}", r.getRecord).Methods("GET")
	records.HandleFunc("/{bobina}/{sec}", r.updateRecord).Methods("PUT")
	records.HandleFunc("/{bobina}/{sec}", r.deleteRecord).Methods("DELETE")

	// Bulk passes
	api.HandleFunc("/recode", r.bulkRecode).Methods("POST")
	api.HandleFunc("/normalize", r.normalize).Methods("POST")

	// Fabrication order routes
	ofs := r.PathPrefix("/api/ofs").Subrouter()
	ofs.HandleFunc("", r.listOFs).Methods("GET")
	ofs.HandleFunc("/{of}", r.getOFDetail).Methods("GET")
	ofs.HandleFunc("/{of}/export", r.exportOF).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"table":     r.store.Schema().Name,
		"terminals": r.hub.Terminals(),
	})
}

// Grid column order: key and capture fields lead, anything else keeps its
// physical position. The surrogate id column is never shown.
var preferredColumns = []string{
	"of", "bobina_num", "sec", "fecha", "codprod", "alistamiento",
	"calidad", "obs", "gramaje", "diametro", "ancho", "peso",
	"codigodeproducto", "descprod",
}

// getSchema exposes the discovered table layout so the presentation layer
// can build its grid without a hardcoded column list.
func (r *Router) getSchema(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"table":   r.store.Schema().Name,
		"columns": displayColumns(r.store.Schema()),
	})
}

// displayColumns reorders the physical column list for presentation:
// preferred columns first, remaining ones in table order, id hidden.
func displayColumns(schema *database.TableSchema) []string {
	physical := schema.ColumnNames()
	byLower := make(map[string]string, len(physical))
	for _, c := range physical {
		byLower[strings.ToLower(c)] = c
	}

	seen := make(map[string]bool, len(physical))
	ordered := make([]string, 0, len(physical))
	for _, pref := range preferredColumns {
		if phys, ok := byLower[pref]; ok {
			ordered = append(ordered, phys)
			seen[pref] = true
		}
	}
	for _, c := range physical {
		lc := strings.ToLower(c)
		if lc == "id" || seen[lc] {
			continue
		}
		ordered = append(ordered, c)
	}
	return ordered
}

// getLookups returns the capture form catalog.
func (r *Router) getLookups(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.catalog)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
