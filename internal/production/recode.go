package production

import (
	"fmt"
	"log"
	"strings"
)

// RecodeRequest describes one bulk calidad/obs rewrite. FilterOF narrows the
// pass to a single fabrication order; empty means every row.
type RecodeRequest struct {
	Quality  string
	Obs      string
	FilterOF string
}

// Validate rejects requests that would splice blanks into product codes.
func (r RecodeRequest) Validate() error {
	if strings.TrimSpace(r.Quality) == "" || strings.TrimSpace(r.Obs) == "" {
		return fmt.Errorf("recode: quality and obs are both required")
	}
	if len(r.Quality) != 2 || len(r.Obs) != 2 {
		return fmt.Errorf("recode: quality and obs must be 2 characters, got %q/%q", r.Quality, r.Obs)
	}
	return nil
}

// RecodeResult tallies one bulk recode pass.
type RecodeResult struct {
	Total   int
	Updated int
	Failed  int
}

// BulkRecode stamps the requested calidad/obs pair onto every matching row
// and splices the pair into each stored product code in place. Codes are
// never recomposed from scratch here: whatever prefix and measurement
// suffix a row already carries stays intact. Rows fail individually; one
// bad row never aborts the pass.
func (s *Store) BulkRecode(req RecodeRequest) (RecodeResult, error) {
	var result RecodeResult
	if err := req.Validate(); err != nil {
		return result, err
	}

	records, err := s.Load(req.FilterOF)
	if err != nil {
		return result, err
	}
	result.Total = len(records)
	if result.Total == 0 {
		log.Printf("⚠️ Recode: no rows match OF filter %q", req.FilterOF)
		return result, nil
	}

	for _, rec := range records {
		rec.Set(FieldCalidad, req.Quality)
		rec.Set(FieldObs, req.Obs)
		if code := rec.GetString(FieldCodigo); code != "" {
			rec.Set(FieldCodigo, SpliceQualityObs(code, req.Quality, req.Obs))
		}
		if err := s.UpdateRecord(rec); err != nil {
			log.Printf("⚠️ Recode failed for %s: %v", rec.KeyString(), err)
			result.Failed++
			continue
		}
		result.Updated++
	}

	// Some drivers buffer writes until a checkpoint; force one so the pass
	// is durable before the caller reports success.
	s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")

	log.Printf("🔁 Recode %s/%s: %d updated, %d failed of %d rows",
		req.Quality, req.Obs, result.Updated, result.Failed, result.Total)
	return result, nil
}
