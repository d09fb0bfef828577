package production

import (
	"fmt"
	"strings"
	"time"
)

// captureDefaults are stamped onto newly captured rows when the live table
// carries the column and the caller left it blank. The values come from the
// ERP movement conventions for production entries.
var captureDefaults = []struct {
	column string
	value  any
}{
	{"tipo_mov", "ALTA"},
	{"tipomovimiento", "006"},
	{"deposito", "01"},
	{"primeraundemedida", "KG"},
	{"segundaundemedida", "UN"},
	{"cantidadensegunda", 1},
	{"codclie", "000011"},
	{"cuentacontable", "1401010000"},
}

// CreateRecord captures one new roll: it rejects duplicate natural keys,
// stamps the movement defaults, derives calidad/obs and the composite
// product code, fills lote and nroOT, and inserts the row. productName, when
// non-empty, lands upper-cased in descprod.
func (s *Store) CreateRecord(rec *Record, productName string, now time.Time) error {
	bobina, sec := rec.NaturalKey()
	if bobina == "" || sec == "" {
		return fmt.Errorf("capture: bobina_num and sec are required")
	}

	exists, err := s.Exists(bobina, sec)
	if err != nil {
		return err
	}
	if exists {
		return &PersistenceError{Op: "insert", Key: rec.KeyString(),
			Err: fmt.Errorf("a roll with this bobina/sec already exists")}
	}

	for _, d := range captureDefaults {
		if s.schema.HasColumn(d.column) && columnBlank(rec, d.column) {
			rec.SetColumn(s.schema.ColumnName(d.column), d.value)
		}
	}
	if productName != "" && s.schema.HasColumn(FieldDescProd) && rec.Blank(FieldDescProd) {
		rec.Set(FieldDescProd, strings.ToUpper(productName))
	}

	ApplyQualityDerivation(rec, now)

	if rec.Blank(FieldCodigo) {
		rec.Set(FieldCodigo, ComposeCode(
			rec.GetString(FieldAlistamiento),
			rec.GetString(FieldCodProd),
			rec.GetString(FieldCalidad),
			rec.GetString(FieldObs),
			rec.Get(FieldGramaje),
			rec.Get(FieldDiametro),
			rec.Get(FieldAncho),
			s.weightWidth,
		))
	}
	if rec.Get(FieldPeso) != nil {
		rec.Set(FieldCantidad1, FormatQuantity(rec.Get(FieldPeso)))
	}
	if rec.Blank(FieldLote) && !rec.Blank(FieldOF) {
		rec.Set(FieldLote, fmt.Sprintf("%s/%s", rec.GetString(FieldOF), sec))
	}
	if rec.Blank(FieldNroOT) && !rec.Blank(FieldOF) {
		rec.Set(FieldNroOT, rec.GetString(FieldOF))
	}

	return s.Insert(rec)
}

// CopyRecord duplicates an existing roll under a new natural key. The copy
// keeps every field of the source except the key itself and goes through
// the same derivations as a fresh capture.
func (s *Store) CopyRecord(srcBobina, srcSec, newBobina, newSec string, now time.Time) (*Record, error) {
	copyRec, err := s.FindByNaturalKey(srcBobina, srcSec)
	if err != nil {
		return nil, err
	}
	copyRec.Set(FieldBobinaNum, newBobina)
	copyRec.Set(FieldSec, newSec)
	// lote and nroOT follow the new key, not the source's.
	copyRec.Set(FieldLote, nil)
	copyRec.Set(FieldNroOT, nil)

	if err := s.CreateRecord(copyRec, "", now); err != nil {
		return nil, err
	}
	return copyRec, nil
}

func columnBlank(rec *Record, column string) bool {
	v := rec.Column(column)
	if v == nil {
		return true
	}
	return strings.TrimSpace(asString(v)) == ""
}
