package production

import (
	"strings"
	"time"
)

// ==========================================
// QUALITY / OBSERVATION DERIVER
// Product-type code drives the (calidad, obs) pair.
// ==========================================

// qualityTable maps a normalized codprod to its (calidad, obs) pair. An
// earlier revision of this table carried different values for codes 2, 5
// and 6 ("01"/"01", "05"/"05", "01"/"01"); the plant confirmed the pairs
// below as current, so the old ones are intentionally not honored.
var qualityTable = map[string][2]string{
	"1": {"01", "00"},
	"2": {"01", "02"},
	"3": {"05", "02"},
	"4": {"01", "00"},
	"5": {"05", "02"},
	"6": {"01", "02"},
	"7": {"01", "00"},
}

// defaultQualityObs is used for any product code outside the table.
var defaultQualityObs = [2]string{"01", "00"}

// NormalizeCodProd strips leading zeros from a product-type code ("03" and
// "3" are the same product). An all-zero code normalizes to "0".
func NormalizeCodProd(codprod string) string {
	s := strings.TrimLeft(strings.TrimSpace(codprod), "0")
	if s == "" {
		return "0"
	}
	return s
}

// DeriveQualityObs returns the (calidad, obs) pair for a raw product-type
// code. Total: anything outside the table gets the default pair.
func DeriveQualityObs(codprod string) (quality, obs string) {
	pair, ok := qualityTable[NormalizeCodProd(codprod)]
	if !ok {
		pair = defaultQualityObs
	}
	return pair[0], pair[1]
}

// ApplyQualityDerivation writes the derived calidad/obs onto a record and
// fills the dependent defaults:
//   - producto gets the second character of codprod when blank,
//   - fecha defaults to today when the column exists and is blank,
//   - fechaElaboracion is re-stamped from fecha on every derivation, and
//     fechaValidezLote follows as fechaElaboracion + 5 years (5*365 days).
//
// Columns absent from the live schema are skipped.
func ApplyQualityDerivation(rec *Record, now time.Time) {
	codprod := rec.GetString(FieldCodProd)
	quality, obs := DeriveQualityObs(codprod)
	rec.Set(FieldCalidad, quality)
	rec.Set(FieldObs, obs)

	if rec.Fields().Has(FieldProducto) && rec.Blank(FieldProducto) && len(codprod) >= 2 {
		rec.Set(FieldProducto, string(codprod[1]))
	}

	today := now.Format("02/01/2006")

	if rec.Fields().Has(FieldFecha) && rec.Blank(FieldFecha) {
		rec.Set(FieldFecha, today)
	}

	// fechaElaboracion is deliberately rewritten from fecha even when it
	// already holds a value: the lot dates must track the production date
	// whenever a derivation runs, or an edited fecha would leave a stale
	// elaboration/validity pair behind.
	if rec.Fields().Has(FieldFechaElab) {
		elab := rec.GetString(FieldFecha)
		if elab == "" {
			elab = today
		}
		elab = FormatDate(elab)
		rec.Set(FieldFechaElab, elab)

		if rec.Fields().Has(FieldFechaValidez) {
			rec.Set(FieldFechaValidez, validityFrom(elab, now))
		}
	}
}

// validityFrom computes fechaElaboracion + 5 years, approximated as 5*365
// days to match the lot-validity rule the ERP already applies.
func validityFrom(elab string, now time.Time) string {
	base := now
	if t, err := time.Parse("02/01/2006", elab); err == nil {
		base = t
	}
	return base.AddDate(0, 0, 5*365).Format("02/01/2006")
}
