// Package field implements the tokenized-card layer of the bulk data
// format: positional typed accessors with blank-field defaulting, THRU
// range expansion, and the fixed-width 8/16-column field writers.
package field

import (
	"fmt"
	"strconv"
	"strings"
)

// Card is one tokenized logical card. Index 0 holds the card-type tag,
// data fields follow in positional order. Continuation lines have been
// folded in by the reader, so field positions are continuous across
// physical lines.
type Card struct {
	fields []string
}

// NewCard wraps an ordered field list. The slice is retained.
func NewCard(fields []string) *Card {
	return &Card{fields: fields}
}

// Name returns the card-type tag (field 0), upper-cased.
func (c *Card) Name() string {
	if len(c.fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(c.fields[0]))
}

// Len returns the number of fields including the tag.
func (c *Card) Len() int { return len(c.fields) }

// Field returns the raw text of field i, or "" past the end.
func (c *Card) Field(i int) string {
	if i < 0 || i >= len(c.fields) {
		return ""
	}
	return strings.TrimSpace(c.fields[i])
}

// Fields returns the raw trimmed fields from position i to the end,
// dropping trailing blanks.
func (c *Card) Fields(i int) []string {
	var out []string
	for j := i; j < len(c.fields); j++ {
		out = append(out, strings.TrimSpace(c.fields[j]))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func (c *Card) errorf(i int, name, format string, args ...any) error {
	prefix := fmt.Sprintf("%s field %d (%s): ", c.Name(), i, name)
	return fmt.Errorf(prefix+format, args...)
}

// Integer reads a required integer field.
func (c *Card) Integer(i int, name string) (int, error) {
	s := c.Field(i)
	if s == "" {
		return 0, c.errorf(i, name, "required integer is blank")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, c.errorf(i, name, "invalid integer %q", s)
	}
	return v, nil
}

// IntegerOrBlank reads an integer field, substituting def when blank.
func (c *Card) IntegerOrBlank(i int, name string, def int) (int, error) {
	if c.Field(i) == "" {
		return def, nil
	}
	return c.Integer(i, name)
}

// Double reads a required real field. The format's compact scientific
// notation (embedded exponent sign, optional D exponent marker) is
// accepted alongside standard notation.
func (c *Card) Double(i int, name string) (float64, error) {
	s := c.Field(i)
	if s == "" {
		return 0, c.errorf(i, name, "required real is blank")
	}
	v, err := ParseDouble(s)
	if err != nil {
		return 0, c.errorf(i, name, "invalid real %q", s)
	}
	return v, nil
}

// DoubleOrBlank reads a real field, substituting def when blank.
func (c *Card) DoubleOrBlank(i int, name string, def float64) (float64, error) {
	if c.Field(i) == "" {
		return def, nil
	}
	return c.Double(i, name)
}

// String reads a required alphanumeric field, upper-cased.
func (c *Card) String(i int, name string) (string, error) {
	s := c.Field(i)
	if s == "" {
		return "", c.errorf(i, name, "required string is blank")
	}
	return strings.ToUpper(s), nil
}

// StringOrBlank reads an alphanumeric field, substituting def when blank.
func (c *Card) StringOrBlank(i int, name, def string) (string, error) {
	if c.Field(i) == "" {
		return def, nil
	}
	return c.String(i, name)
}

// Components reads a degree-of-freedom component field: "0" for a scalar
// point, or a string of unique digits 1-6 in any order (e.g. "123", "246").
func (c *Card) Components(i int, name string) (int, error) {
	s := c.Field(i)
	if s == "" {
		return 0, c.errorf(i, name, "required components field is blank")
	}
	return c.parseComponents(i, name, s)
}

// ComponentsOrBlank is Components with a blank-field default.
func (c *Card) ComponentsOrBlank(i int, name string, def int) (int, error) {
	s := c.Field(i)
	if s == "" {
		return def, nil
	}
	return c.parseComponents(i, name, s)
}

func (c *Card) parseComponents(i int, name, s string) (int, error) {
	if s == "0" {
		return 0, nil
	}
	var seen [7]bool
	for _, r := range s {
		d := int(r - '0')
		if d < 1 || d > 6 {
			return 0, c.errorf(i, name, "components %q must be digits 1-6", s)
		}
		if seen[d] {
			return 0, c.errorf(i, name, "components %q repeats digit %d", s, d)
		}
		seen[d] = true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, c.errorf(i, name, "invalid components %q", s)
	}
	return v, nil
}

// ParseDouble converts one real field to a float64, accepting the
// compact exponent forms the deck format allows: "1.23+5" (implied E),
// "1.23-5", "1.23D+5", and ordinary "1.23e5". Integers are rejected in
// strict contexts by the callers, not here.
func ParseDouble(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("blank real field")
	}
	t := strings.ReplaceAll(strings.ReplaceAll(s, "D", "E"), "d", "e")
	if v, err := strconv.ParseFloat(t, 64); err == nil {
		return v, nil
	}
	// Implied exponent: a sign appearing after the first character with
	// no preceding E marks the exponent (e.g. "1.2346+8" = 1.2346e8).
	for i := len(t) - 1; i > 0; i-- {
		ch := t[i]
		if (ch == '+' || ch == '-') && t[i-1] != 'e' && t[i-1] != 'E' {
			v, err := strconv.ParseFloat(t[:i]+"e"+t[i:], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid real %q", s)
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("invalid real %q", s)
}
