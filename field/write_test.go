package field

import (
	"math"
	"strings"
	"testing"
)

func TestPrintFloat8(t *testing.T) {
	testCases := []struct {
		name     string
		value    float64
		expected string
	}{
		{"zero", 0.0, "      0."},
		{"one", 1.0, "      1."},
		{"negative", -1.5, "    -1.5"},
		{"fixed", 1234.5678, "1234.568"},
		{"small", 0.0001235, ".0001235"},
		{"negative_small", -0.05, "    -.05"},
		{"overflow_to_exponent", 123456789.0, "1.2346+8"},
		{"tiny", 1e-8, "    1.-8"},
		{"large_negative", -123456789.0, "-1.235+8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := PrintFloat8(tc.value)
			if got != tc.expected {
				t.Errorf("PrintFloat8(%v) = %q, want %q", tc.value, got, tc.expected)
			}
			if len(got) != 8 {
				t.Errorf("PrintFloat8(%v) = %q, width %d", tc.value, got, len(got))
			}
		})
	}
}

func TestPrintFloat8_RoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 0.5, 1e7, 123456789, 1e-8, -0.05, 3.25, 1e12}
	for _, v := range values {
		s := strings.TrimSpace(PrintFloat8(v))
		back, err := ParseDouble(s)
		if err != nil {
			t.Fatalf("ParseDouble(%q): %v", s, err)
		}
		// Compact formatting loses digits but never the magnitude.
		if v != 0 {
			ratio := back / v
			if ratio < 0.9999 || ratio > 1.0001 {
				t.Errorf("round trip %v -> %q -> %v", v, s, back)
			}
		} else if back != 0 {
			t.Errorf("round trip 0 -> %q -> %v", s, back)
		}
	}
}

func TestPrintFloat16(t *testing.T) {
	got := PrintFloat16(1234.5678)
	if got != "       1234.5678" {
		t.Errorf("PrintFloat16 = %q", got)
	}
	if len(PrintFloat16(123456789.123)) != 16 {
		t.Errorf("width: %q", PrintFloat16(123456789.123))
	}
}

func TestUpdateFieldSize(t *testing.T) {
	if got := UpdateFieldSize(99_999_999, 8); got != 8 {
		t.Errorf("at limit: got %d", got)
	}
	if got := UpdateFieldSize(100_000_000, 8); got != 16 {
		t.Errorf("over limit: got %d", got)
	}
	if got := UpdateFieldSize(5, 16); got != 16 {
		t.Errorf("requested 16: got %d", got)
	}
}

func TestSetBlankIfDefault(t *testing.T) {
	if v := SetBlankIfDefault(0, 0); v != nil {
		t.Errorf("default int should blank, got %v", v)
	}
	if v := SetBlankIfDefault(3, 0); v != 3 {
		t.Errorf("non-default int: got %v", v)
	}
	if v := SetBlankIfDefault(0.0, 0.0); v != nil {
		t.Errorf("default float should blank, got %v", v)
	}
}

func TestPrintCard8(t *testing.T) {
	t.Run("single_line", func(t *testing.T) {
		got := PrintCard8([]any{"GRID", 1, nil, 0.0, 0.0, 0.0})
		want := "GRID           1              0.      0.      0.\n"
		if got != want {
			t.Errorf("got %q\nwant %q", got, want)
		}
	})

	t.Run("continuation", func(t *testing.T) {
		fields := []any{"SPC1", 1, 123}
		for i := 0; i < 10; i++ {
			fields = append(fields, 100+i)
		}
		got := PrintCard8(fields)
		lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
		}
		if !strings.HasPrefix(lines[1], "+") {
			t.Errorf("continuation marker missing: %q", lines[1])
		}
		// 8 data fields on the first line.
		if len(lines[0]) != 8+8*8 {
			t.Errorf("first line width %d: %q", len(lines[0]), lines[0])
		}
	})

	t.Run("trailing_blanks_dropped", func(t *testing.T) {
		got := PrintCard8([]any{"MAT1", 1, 3.0e7, nil, 0.3, nil, nil})
		if strings.Count(got, "\n") != 1 {
			t.Errorf("expected one line: %q", got)
		}
		if strings.HasSuffix(strings.TrimRight(got, "\n"), " ") {
			t.Errorf("trailing spaces kept: %q", got)
		}
	})
}

func TestPrintCard16(t *testing.T) {
	got := PrintCard16([]any{"GRID", 100000000, nil, 1.0, 2.0, 3.0})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "GRID*") {
		t.Errorf("large-field tag: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "*") {
		t.Errorf("large-field continuation: %q", lines[1])
	}
}

func TestPrintFloatDouble(t *testing.T) {
	testCases := []struct {
		v    float64
		want string
	}{
		{1.2345678901e8, "1.2345678901D+08"},
		{-1.5, "-1.500000000D+00"},
		{0.0, "0.0000000000D+00"},
		{1e200, "1.000000000D+200"},
	}
	for _, tc := range testCases {
		got := PrintFloatDouble(tc.v)
		if got != tc.want {
			t.Errorf("PrintFloatDouble(%v) = %q, want %q", tc.v, got, tc.want)
		}
		if len(got) != 16 {
			t.Errorf("width %d: %q", len(got), got)
		}
		back, err := ParseDouble(got)
		if err != nil {
			t.Fatalf("%q: %v", got, err)
		}
		if back != tc.v {
			t.Errorf("round trip %v -> %q -> %v", tc.v, got, back)
		}
	}

	if got := PrintFloatDouble(math.NaN()); strings.TrimSpace(got) != "" || len(got) != 16 {
		t.Errorf("NaN field %q", got)
	}
}

func TestPrintCard16Double(t *testing.T) {
	single := PrintCard(16, false)([]any{"GRID", 1, nil, 1.5, 2.5, 3.5})
	double := PrintCard(16, true)([]any{"GRID", 1, nil, 1.5, 2.5, 3.5})
	if single == double {
		t.Fatal("double form identical to single precision")
	}
	if !strings.Contains(double, "1.5000000000D+00") {
		t.Errorf("D exponent missing: %q", double)
	}
	if !strings.HasPrefix(double, "GRID*") {
		t.Errorf("large-field tag: %q", double)
	}
}

func TestExpandThru(t *testing.T) {
	t.Run("range", func(t *testing.T) {
		ids, err := ExpandThru([]string{"10", "THRU", "13"})
		if err != nil {
			t.Fatal(err)
		}
		want := []int{10, 11, 12, 13}
		if len(ids) != len(want) {
			t.Fatalf("got %v", ids)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("got %v, want %v", ids, want)
			}
		}
	})

	t.Run("descending_range", func(t *testing.T) {
		if _, err := ExpandThru([]string{"13", "THRU", "10"}); err == nil {
			t.Error("expected error for descending range")
		}
	})

	t.Run("dangling_thru", func(t *testing.T) {
		if _, err := ExpandThru([]string{"THRU", "10"}); err == nil {
			t.Error("expected error for leading THRU")
		}
		if _, err := ExpandThru([]string{"10", "THRU"}); err == nil {
			t.Error("expected error for trailing THRU")
		}
	})

	t.Run("duplicates_removed", func(t *testing.T) {
		ids, err := ExpandThru([]string{"5", "3", "5", "4"})
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 3 || ids[0] != 3 || ids[2] != 5 {
			t.Errorf("got %v", ids)
		}
	})
}

func TestCollapseThru(t *testing.T) {
	testCases := []struct {
		name     string
		ids      []int
		expected []string
	}{
		{"run", []int{1, 2, 3, 4, 5}, []string{"1", "THRU", "5"}},
		{"short_run_explicit", []int{1, 2, 3}, []string{"1", "2", "3"}},
		{"mixed", []int{1, 2, 3, 4, 9}, []string{"1", "THRU", "4", "9"}},
		{"unsorted_input", []int{5, 1, 3, 2, 4}, []string{"1", "THRU", "5"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CollapseThru(tc.ids)
			if len(got) != len(tc.expected) {
				t.Fatalf("got %v, want %v", got, tc.expected)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("got %v, want %v", got, tc.expected)
				}
			}
		})
	}
}
