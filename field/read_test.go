package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDouble(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected float64
	}{
		{"plain", "123.456", 123.456},
		{"implied_positive_exponent", "1.2346+8", 1.2346e8},
		{"implied_negative_exponent", "1.235-4", 1.235e-4},
		{"explicit_exponent", "1.5e3", 1500},
		{"fortran_exponent", "1.5D+3", 1500},
		{"lowercase_fortran", "2.0d-2", 0.02},
		{"no_leading_zero", ".5", 0.5},
		{"negative_no_leading_zero", "-.05", -0.05},
		{"negative_mantissa_exponent", "-1.235+8", -1.235e8},
		{"bare_dot_exponent", "1.-8", 1e-8},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDouble(tc.input)
			if err != nil {
				t.Fatalf("ParseDouble(%q): %v", tc.input, err)
			}
			assert.InEpsilon(t, tc.expected, got, 1e-12)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		for _, s := range []string{"", "abc", "1.2.3", "THRU"} {
			if _, err := ParseDouble(s); err == nil {
				t.Errorf("ParseDouble(%q) should fail", s)
			}
		}
	})
}

func TestCardAccessors(t *testing.T) {
	c := NewCard([]string{"grid", "42", "", "1.5", "2.5", "3.5", "", "456"})

	if c.Name() != "GRID" {
		t.Errorf("Name = %q", c.Name())
	}

	t.Run("integer", func(t *testing.T) {
		v, err := c.Integer(1, "nid")
		assert.NoError(t, err)
		assert.Equal(t, 42, v)

		_, err = c.Integer(2, "cp")
		assert.Error(t, err, "blank strict integer")

		_, err = c.Integer(3, "cp")
		assert.Error(t, err, "real in integer field")
	})

	t.Run("integer_or_blank", func(t *testing.T) {
		v, err := c.IntegerOrBlank(2, "cp", 7)
		assert.NoError(t, err)
		assert.Equal(t, 7, v)

		v, err = c.IntegerOrBlank(99, "past_end", -1)
		assert.NoError(t, err)
		assert.Equal(t, -1, v)
	})

	t.Run("double", func(t *testing.T) {
		v, err := c.Double(3, "x")
		assert.NoError(t, err)
		assert.Equal(t, 1.5, v)

		_, err = c.Double(2, "x")
		assert.Error(t, err, "blank strict real")
	})

	t.Run("fields_drops_trailing_blanks", func(t *testing.T) {
		fs := c.Fields(3)
		assert.Equal(t, []string{"1.5", "2.5", "3.5", "", "456"}, fs)
	})
}

func TestCardComponents(t *testing.T) {
	c := NewCard([]string{"SPC1", "1", "123456", "0", "13", "122", "7"})

	v, err := c.Components(2, "c")
	assert.NoError(t, err)
	assert.Equal(t, 123456, v)

	v, err = c.Components(3, "c")
	assert.NoError(t, err)
	assert.Equal(t, 0, v)

	v, err = c.Components(4, "c")
	assert.NoError(t, err)
	assert.Equal(t, 13, v)

	_, err = c.Components(5, "c")
	assert.Error(t, err, "repeated digit")

	_, err = c.Components(6, "c")
	assert.Error(t, err, "digit outside 1-6")

	v, err = c.ComponentsOrBlank(99, "c", 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestCardErrorMessages(t *testing.T) {
	c := NewCard([]string{"FORCE", "x"})
	_, err := c.Integer(1, "sid")
	if err == nil {
		t.Fatal("expected error")
	}
	// Errors carry card type, position and field name for locating the
	// bad field in a big deck.
	assert.Contains(t, err.Error(), "FORCE")
	assert.Contains(t, err.Error(), "sid")
}
