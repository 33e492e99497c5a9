package field

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxSmallInt is the largest id that renders legibly in an 8-column
// field. Any table whose maximum id exceeds it is promoted to
// large-field output as a whole.
const MaxSmallInt = 99_999_999

// UpdateFieldSize promotes the requested field size to 16 when maxInt
// cannot render in 8 columns. The promotion is per-table: it is decided
// once from the table's maximum id before any row is rendered so every
// line of a card type shares one column width.
func UpdateFieldSize(maxInt, size int) int {
	if maxInt > MaxSmallInt {
		return 16
	}
	return size
}

// SetBlankIfDefault elides a field that equals the card's documented
// default. A nil field renders as spaces.
func SetBlankIfDefault[T comparable](value, def T) any {
	if value == def {
		return nil
	}
	return value
}

// PrintFloat8 renders v right-justified in 8 characters.
func PrintFloat8(v float64) string {
	return fmt.Sprintf("%8s", printFloat(v, 8))
}

// PrintFloat16 renders v right-justified in 16 characters.
func PrintFloat16(v float64) string {
	return fmt.Sprintf("%16s", printFloat(v, 16))
}

// printFloat picks fixed notation while the magnitude allows enough
// precision, otherwise the format's compact scientific notation
// (exponent sign doubles as the E marker, e.g. "1.2346+8"). Every
// result parses back through ParseDouble.
func printFloat(v float64, width int) string {
	if v == 0 {
		return "0."
	}
	if math.IsNaN(v) {
		return ""
	}
	av := math.Abs(v)
	if av >= 0.001 {
		if s, ok := printFixed(v, width); ok {
			return s
		}
		return printScientific(v, width)
	}
	// Small magnitudes keep fixed notation only when nothing is lost.
	if s, ok := printFixed(v, width); ok {
		if fv, err := ParseDouble(s); err == nil && fv == v {
			return s
		}
	}
	return printScientific(v, width)
}

// printFixed renders v in plain decimal notation within width columns,
// trailing zeros trimmed, decimal point always present. ok is false
// when the integer part alone overflows the field.
func printFixed(v float64, width int) (string, bool) {
	neg := 0
	if v < 0 {
		neg = 1
	}
	av := math.Abs(v)
	// Room after the decimal point: width minus sign, point, and the
	// integer digits. Below 1 the leading zero is stripped, freeing its
	// column.
	digits := width - 1 - neg - intDigits(av)
	if av < 1 {
		digits = width - 1 - neg
	}
	if digits < 0 {
		return "", false
	}
	s := strconv.FormatFloat(v, 'f', digits, 64)
	// Rounding can add an integer digit (9.99 -> 10.0 at precision 1).
	if dot := strings.IndexByte(s, '.'); dot >= 0 && dot-neg > intDigits(av) {
		if digits == 0 {
			return "", false
		}
		s = strconv.FormatFloat(v, 'f', digits-1, 64)
	}
	if strings.ContainsAny(s, ".") {
		s = strings.TrimRight(s, "0")
	} else {
		s += "."
	}
	// ".0001235" and "-.05" are valid fields; the leading zero is not
	// worth a column.
	if strings.HasPrefix(s, "0.") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-0.") {
		s = "-" + s[2:]
	}
	if s == "." || s == "-." {
		return "", false
	}
	if len(s) > width {
		return "", false
	}
	return s, true
}

// printScientific renders v in compact exponent form sized to width:
// mantissa, exponent sign standing in for E, exponent digits.
func printScientific(v float64, width int) string {
	mant, exp := splitMantissa(v)
	for {
		expDigits := len(strconv.Itoa(abs(exp)))
		sign := 0
		if v < 0 {
			sign = 1
		}
		// width = sign + "d." + fraction + exponent sign + exponent
		frac := width - sign - 2 - 1 - expDigits
		if frac < 0 {
			frac = 0
		}
		s := strconv.FormatFloat(mant, 'f', frac, 64)
		// Rounding can carry the mantissa to 10; renormalize and retry.
		if m2, err := strconv.ParseFloat(s, 64); err == nil && math.Abs(m2) >= 10 {
			mant /= 10
			exp++
			continue
		}
		if strings.ContainsRune(s, '.') {
			s = strings.TrimRight(s, "0")
		} else {
			s += "."
		}
		expSign := "+"
		if exp < 0 {
			expSign = "-"
		}
		return s + expSign + strconv.Itoa(abs(exp))
	}
}

// splitMantissa decomposes v into mant * 10^exp with 1 <= |mant| < 10.
func splitMantissa(v float64) (float64, int) {
	exp := int(math.Floor(math.Log10(math.Abs(v))))
	mant := v / math.Pow(10, float64(exp))
	// Guard the log10 edge at power-of-ten boundaries.
	if math.Abs(mant) >= 10 {
		mant /= 10
		exp++
	} else if math.Abs(mant) < 1 {
		mant *= 10
		exp--
	}
	return mant, exp
}

func intDigits(av float64) int {
	if av < 1 {
		return 1
	}
	return int(math.Floor(math.Log10(av))) + 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// PrintField8 renders one value in an 8-column field. nil renders blank.
func PrintField8(v any) string {
	switch t := v.(type) {
	case nil:
		return strings.Repeat(" ", 8)
	case int:
		return fmt.Sprintf("%8d", t)
	case float64:
		return PrintFloat8(t)
	case string:
		return fmt.Sprintf("%8s", t)
	default:
		panic(fmt.Sprintf("unsupported field type %T", v))
	}
}

// PrintFloatDouble renders v right-justified in 16 characters using the
// double-precision exponent form: a full-precision mantissa and a D
// exponent marker, e.g. "1.2345678901D+08". Ten mantissa digits after
// the point (nine when a sign is carried) fill the field exactly.
func PrintFloatDouble(v float64) string {
	if math.IsNaN(v) {
		return strings.Repeat(" ", 16)
	}
	prec := 10
	if v < 0 {
		prec = 9
	}
	s := strconv.FormatFloat(v, 'e', prec, 64)
	// A three-digit exponent claims a mantissa column.
	if over := len(s) - 16; over > 0 {
		s = strconv.FormatFloat(v, 'e', prec-over, 64)
	}
	s = strings.ToUpper(strings.Replace(s, "e", "D", 1))
	return fmt.Sprintf("%16s", s)
}

// PrintField16 renders one value in a 16-column field.
func PrintField16(v any) string {
	switch t := v.(type) {
	case nil:
		return strings.Repeat(" ", 16)
	case int:
		return fmt.Sprintf("%16d", t)
	case float64:
		return PrintFloat16(t)
	case string:
		return fmt.Sprintf("%16s", t)
	default:
		panic(fmt.Sprintf("unsupported field type %T", v))
	}
}

// PrintCard8 renders a field list as small-field lines: the tag in the
// first 8 columns, 8 data fields per line, continuation lines indented
// by a blank tag field. Trailing blank fields are dropped.
func PrintCard8(fields []any) string {
	fields = trimTrailingBlanks(fields)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-8v", fields[0]))
	for i, f := range fields[1:] {
		if i > 0 && i%8 == 0 {
			b.WriteString("\n+       ")
		}
		b.WriteString(PrintField8(f))
	}
	return trimLineEnds(b.String()) + "\n"
}

// PrintCard16 renders a field list as large-field lines: the tag
// carries a trailing '*', 4 data fields per line, continuation lines
// start with '*'.
func PrintCard16(fields []any) string {
	fields = trimTrailingBlanks(fields)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-8s", fmt.Sprintf("%v*", fields[0])))
	for i, f := range fields[1:] {
		if i > 0 && i%4 == 0 {
			b.WriteString("\n*       ")
		}
		b.WriteString(PrintField16(f))
	}
	return trimLineEnds(b.String()) + "\n"
}

// PrintCard16Double is PrintCard16 with floats in the double-precision
// D-exponent form.
func PrintCard16Double(fields []any) string {
	fields = trimTrailingBlanks(fields)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-8s", fmt.Sprintf("%v*", fields[0])))
	for i, f := range fields[1:] {
		if i > 0 && i%4 == 0 {
			b.WriteString("\n*       ")
		}
		if fv, ok := f.(float64); ok {
			b.WriteString(PrintFloatDouble(fv))
		} else {
			b.WriteString(PrintField16(f))
		}
	}
	return trimLineEnds(b.String()) + "\n"
}

// PrintCard returns the renderer for the requested field size and
// precision. isDouble implies the large-field format.
func PrintCard(size int, isDouble bool) func([]any) string {
	if isDouble {
		return PrintCard16Double
	}
	if size == 16 {
		return PrintCard16
	}
	return PrintCard8
}

func trimTrailingBlanks(fields []any) []any {
	n := len(fields)
	for n > 1 && fields[n-1] == nil {
		n--
	}
	return fields[:n]
}

func trimLineEnds(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}
