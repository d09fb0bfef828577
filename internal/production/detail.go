package production

import (
	"sort"
	"strconv"
	"strings"
)

// DetailRow is one roll within an OF detail group.
type DetailRow struct {
	BobinaNum string  `json:"bobina_num"`
	Ancho     string  `json:"ancho"`
	Peso      float64 `json:"peso"`
}

// DetailGroup collects the rolls of one sec with their accumulated weight.
type DetailGroup struct {
	Sec       string      `json:"sec"`
	Rows      []DetailRow `json:"rows"`
	TotalPeso float64     `json:"total_peso"`
}

// OFDetail groups one fabrication order's rolls by sec, preserving the
// sec/bobina read order, with a weight total per group. Unparseable peso
// values count as zero.
func (s *Store) OFDetail(of string) ([]DetailGroup, error) {
	records, err := s.LoadByOF(of)
	if err != nil {
		return nil, err
	}

	var groups []DetailGroup
	index := map[string]int{}
	for _, rec := range records {
		sec := rec.GetString(FieldSec)
		i, ok := index[sec]
		if !ok {
			i = len(groups)
			index[sec] = i
			groups = append(groups, DetailGroup{Sec: sec})
		}
		peso, _ := parseFloat(rec.Get(FieldPeso))
		groups[i].Rows = append(groups[i].Rows, DetailRow{
			BobinaNum: rec.GetString(FieldBobinaNum),
			Ancho:     rec.GetString(FieldAncho),
			Peso:      peso,
		})
		groups[i].TotalPeso += peso
	}
	return groups, nil
}

// sortOFsNumeric orders OF numbers by their digit content so "9" comes
// before "10". Values without digits sort last in their original order.
func sortOFsNumeric(ofs []string) {
	sort.SliceStable(ofs, func(i, j int) bool {
		ni, oki := digitsValue(ofs[i])
		nj, okj := digitsValue(ofs[j])
		if oki && okj {
			return ni < nj
		}
		return oki && !okj
	})
}

func digitsValue(s string) (int64, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
