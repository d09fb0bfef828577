package production

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultWeightClassWidth is the gramaje segment width used unless a
// deployment overrides it (some legacy databases pad to 4).
const DefaultWeightClassWidth = 3

var dmyPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// ==========================================
// FIELD FORMATTERS
// Fixed-width positional segments of codigoDeProducto and the export line.
// Total functions: invalid input yields the zero sentinel, never an error,
// so one malformed field cannot stall a batch.
// ==========================================

// parseFloat accepts numeric types and strings, tolerating a comma decimal
// separator.
func parseFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(v)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// FormatWeightClass renders gramaje as its integer part zero-padded to width.
func FormatWeightClass(value any, width int) string {
	if width <= 0 {
		width = DefaultWeightClassWidth
	}
	f, ok := parseFloat(value)
	if !ok {
		return strings.Repeat("0", width)
	}
	return fmt.Sprintf("%0*d", width, int(f))
}

// FormatDiameter renders diametro in tenths, zero-padded to 4 digits.
func FormatDiameter(value any) string {
	f, ok := parseFloat(value)
	if !ok {
		return "0000"
	}
	return fmt.Sprintf("%04d", int(math.Round(f*10)))
}

// FormatWidth renders ancho as 3 integer digits plus 2 decimal digits.
// The integer part keeps only its last 3 digits; a negative value keeps its
// sign inside the 5-character cap.
func FormatWidth(value any) string {
	f, ok := parseFloat(value)
	if !ok {
		return "00000"
	}

	negative := f < 0
	f = math.Abs(f)

	intPart := int(f)
	fracPart := int(math.Round((f - float64(intPart)) * 100))

	intStr := fmt.Sprintf("%03d", intPart)
	intStr = intStr[len(intStr)-3:]
	fracStr := fmt.Sprintf("%02d", fracPart)
	if len(fracStr) > 2 {
		fracStr = fracStr[:2]
	}

	result := intStr + fracStr
	if negative {
		result = "-" + result
	}
	if len(result) > 5 {
		result = result[:5]
	}
	for len(result) < 5 {
		result += "0"
	}
	return result
}

// FormatQuantity renders a weight/quantity with 2 decimals and a comma
// separator, the form the ERP expects for CantidadEnPrimeraUdM.
func FormatQuantity(value any) string {
	f, ok := parseFloat(value)
	if !ok {
		return "0,00"
	}
	return strings.Replace(fmt.Sprintf("%.2f", f), ".", ",", 1)
}

// FormatDate normalizes a date value to dd/MM/yyyy. Strings that parse in
// none of the known layouts are returned as-is: export consumers prefer the
// raw value over a hard failure.
func FormatDate(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format("02/01/2006")
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return ""
		}
		if dmyPattern.MatchString(s) {
			return s
		}
		// Strip a trailing time component
		if idx := strings.IndexByte(s, ' '); idx >= 0 {
			s = s[:idx]
		}
		for _, layout := range []string{"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("02/01/2006")
			}
		}
		return s
	default:
		return FormatDate(fmt.Sprint(v))
	}
}

// ==========================================
// PRODUCT CODE COMPOSER
// codigoDeProducto = alistamiento + codprod + calidad + obs +
//                    gramaje(3) + diametro(4) + ancho(5)
// ==========================================

// ComposeCode builds the composite product code from its positional segments.
func ComposeCode(alistamiento, codprod, calidad, obs string, gramaje, diametro, ancho any, weightWidth int) string {
	return strings.TrimSpace(alistamiento) +
		strings.TrimSpace(codprod) +
		strings.TrimSpace(calidad) +
		strings.TrimSpace(obs) +
		FormatWeightClass(gramaje, weightWidth) +
		FormatDiameter(diametro) +
		FormatWidth(ancho)
}

// SpliceQualityObs replaces the quality block (positions 4-5) and the
// observation block (positions 6-7) of an existing composite code, keeping
// the prefix and suffix byte-for-byte. Codes shorter than 8 characters and
// non-2-character targets are left untouched: a partial prefix must never be
// rewritten from guessed segments.
func SpliceQualityObs(code, quality, obs string) string {
	if len(code) < 8 || len(quality) != 2 || len(obs) != 2 {
		return code
	}
	return code[:4] + quality + obs + code[8:]
}
