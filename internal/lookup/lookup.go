package lookup

import (
	"encoding/json"
	"log"
	"os"
	"strings"
)

// Option is one selectable code/name pair from the lookup file.
type Option struct {
	Codigo string `json:"codigo"`
	Nombre string `json:"nombre"`
}

// Catalog holds the selectable values the capture forms offer: product
// types, alistamiento prefixes, and the calidad/obs pairs. It is loaded
// once from a JSON file shipped next to the database.
type Catalog struct {
	Productos     []Option `json:"Productos"`
	Alistamiento  []Option `json:"Alistamiento"`
	Calidad       []Option `json:"Calidad"`
	Observaciones []Option `json:"Observaciones"`
}

// Load reads the catalog from path. A missing or unreadable file is not
// fatal: capture still works with free-form input, so the catalog comes
// back empty with a warning.
func Load(path string) *Catalog {
	cat := &Catalog{}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ Lookup catalog not loaded from %s: %v", path, err)
		return cat
	}
	if err := json.Unmarshal(data, cat); err != nil {
		log.Printf("⚠️ Lookup catalog %s is not valid JSON: %v", path, err)
		return &Catalog{}
	}
	log.Printf("✅ Lookup catalog loaded: %d productos, %d alistamientos, %d calidades, %d observaciones",
		len(cat.Productos), len(cat.Alistamiento), len(cat.Calidad), len(cat.Observaciones))
	return cat
}

// NameFor resolves a code to its display name within one category
// ("productos", "alistamiento", "calidad" or "observaciones"). Unknown
// categories and unknown codes return "".
func (c *Catalog) NameFor(category, codigo string) string {
	var opts []Option
	switch strings.ToLower(category) {
	case "productos":
		opts = c.Productos
	case "alistamiento":
		opts = c.Alistamiento
	case "calidad":
		opts = c.Calidad
	case "observaciones":
		opts = c.Observaciones
	}
	for _, opt := range opts {
		if opt.Codigo == codigo {
			return opt.Nombre
		}
	}
	return ""
}

// ProductName returns the upper-cased display name for a product-type
// code, used to fill descprod on newly captured rows. Unknown codes
// return "".
func (c *Catalog) ProductName(codigo string) string {
	return strings.ToUpper(c.NameFor("productos", codigo))
}
