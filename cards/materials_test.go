package cards

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LetterRay/bulkdata/field"
)

func TestDeriveEGNu(t *testing.T) {
	testCases := []struct {
		name     string
		e, g, nu float64
		wantE    float64
		wantG    float64
		wantNu   float64
	}{
		{"derive_G", 3.0e7, -1, 0.3, 3.0e7, 3.0e7 / 2.6, 0.3},
		{"derive_nu", 3.0e7, 1.2e7, -1, 3.0e7, 1.2e7, 0.25},
		{"derive_E", -1, 1.2e7, 0.25, 3.0e7, 1.2e7, 0.25},
		{"G_and_nu_blank", 3.0e7, -1, -1, 3.0e7, 0, 0},
		{"E_and_nu_blank", -1, 1.2e7, -1, 0, 1.2e7, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, g, nu, err := DeriveEGNu(tc.e, tc.g, tc.nu)
			if err != nil {
				t.Fatal(err)
			}
			assert.InDelta(t, tc.wantE, e, 1e-6)
			assert.InDelta(t, tc.wantG, g, 1e-6)
			assert.InDelta(t, tc.wantNu, nu, 1e-9)
		})
	}
}

func TestMAT1_AddCard(t *testing.T) {
	m := NewMAT1()
	c := field.NewCard([]string{"MAT1", "1", "3.0e7", "", "0.3", "0.1"})
	if _, err := m.AddCard(c); err != nil {
		t.Fatal(err)
	}
	if err := m.ParseCards(); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("rows %d", m.Len())
	}
	assert.InDelta(t, 3.0e7/2.6, m.G[0], 1e-3, "G derived from E and nu")
	assert.Equal(t, 0.1, m.Rho[0])

	t.Run("all_blank_elastic", func(t *testing.T) {
		m2 := NewMAT1()
		c := field.NewCard([]string{"MAT1", "2"})
		if _, err := m2.AddCard(c); err != nil {
			t.Fatal(err)
		}
		if err := m2.ParseCards(); err != nil {
			t.Fatal(err)
		}
		if m2.E[0] != 0 || m2.G[0] != 0 || m2.Nu[0] != 0 {
			t.Errorf("E=%v G=%v nu=%v", m2.E[0], m2.G[0], m2.Nu[0])
		}
	})

	t.Run("too_many_fields", func(t *testing.T) {
		m3 := NewMAT1()
		fields := []string{"MAT1", "3", "1.0", "", "0.3"}
		for len(fields) < 15 {
			fields = append(fields, "1.0")
		}
		if _, err := m3.AddCard(field.NewCard(fields)); err == nil {
			t.Error("expected error for oversized card")
		}
	})
}

func TestMAT1_WriteDefaultElision(t *testing.T) {
	m := NewMAT1()
	// G left to its derived default, all optional fields zero.
	if _, err := m.Add(1, 3.0e7, -1, 0.3, 0, 0, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.ParseCards(); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := m.WriteFile(&buf, 8, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("short form should be one line: %q", out)
	}
	// Derived G elides; the visible fields are mid, E, nu.
	fields := strings.Fields(out)
	if len(fields) != 4 {
		t.Fatalf("fields %v", fields)
	}
	assert.Equal(t, "MAT1", fields[0])
	assert.Equal(t, "1", fields[1])
	assert.Equal(t, ".3", fields[3])

	t.Run("strength_block_kept", func(t *testing.T) {
		m2 := NewMAT1()
		if _, err := m2.Add(2, 3.0e7, -1, 0.3, 0, 0, 0, 0, 20000, 0, 0, 0); err != nil {
			t.Fatal(err)
		}
		if err := m2.ParseCards(); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := m2.WriteFile(&buf, 8, false); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "20000.") {
			t.Errorf("St missing: %q", buf.String())
		}
	})
}

func TestMAT1_Convert(t *testing.T) {
	m := NewMAT1()
	if _, err := m.Add(1, 3.0e7, -1, 0.3, 0.1, 1e-5, 70, 0, 100, 200, 300, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.ParseCards(); err != nil {
		t.Fatal(err)
	}
	scales := UnitScales()
	scales.Stiffness = 2
	scales.Density = 3
	scales.Stress = 10
	m.Convert(scales)

	assert.InDelta(t, 6.0e7, m.E[0], 1)
	assert.InDelta(t, 0.3, m.Rho[0], 1e-12)
	assert.Equal(t, 1000.0, m.St[0])
	assert.Equal(t, 3000.0, m.Ss[0])
	// nu is dimensionless and untouched.
	assert.Equal(t, 0.3, m.Nu[0])
}

func TestMAT1_SortAndSlice(t *testing.T) {
	m := NewMAT1()
	for _, mid := range []int{30, 10, 20} {
		if _, err := m.Add(mid, 1.0e7, -1, 0.3, 0, 0, 0, 0, 0, 0, 0, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.ParseCards(); err != nil {
		t.Fatal(err)
	}
	// ParseCards sorts by material id.
	if m.MaterialID[0] != 10 || m.MaterialID[2] != 30 {
		t.Fatalf("ids %v", m.MaterialID)
	}

	sl, err := m.SliceByID([]int{20})
	if err != nil {
		t.Fatal(err)
	}
	if sl.Len() != 1 || sl.MaterialID[0] != 20 {
		t.Errorf("slice %v", sl.MaterialID)
	}

	if _, err := m.SliceByID([]int{99}); err == nil {
		t.Error("expected error for unknown material id")
	}
}

func TestMAT1_DuplicateMaterialIDRejected(t *testing.T) {
	m := NewMAT1()
	if _, err := m.Add(4, 3.0e7, -1, 0.3, 0, 0, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add(4, 1.0e7, -1, 0.3, 0, 0, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	err := m.ParseCards()
	if err == nil {
		t.Fatal("duplicate material id committed silently")
	}
	assert.Contains(t, err.Error(), "material_id")
	assert.Contains(t, err.Error(), "4")
}

func TestMAT1_Compliance(t *testing.T) {
	m := NewMAT1()
	if _, err := m.Add(1, 3.0e7, 1.2e7, -1, 0, 0, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.ParseCards(); err != nil {
		t.Fatal(err)
	}
	s := m.Compliance()[0]
	assert.InDelta(t, 1/3.0e7, s.At(0, 0), 1e-18)
	assert.InDelta(t, 1/1.2e7, s.At(2, 2), 1e-18)
	if math.Abs(s.At(0, 1)-s.At(1, 0)) > 1e-18 {
		t.Error("compliance must be symmetric")
	}
}
